package modbus

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Server is a Modbus/TCP slave serving a register store. Each accepted
// connection gets its own goroutine; response synthesis is serialized
// per server, so the read-then-write pair of the combined function always
// observes a consistent store even with several connections attached.
type Server struct {
	ln     net.Listener
	store  RegisterStore
	logger *zap.Logger

	// synthMu serializes synthesis across connections. The store itself
	// carries no locking; see RegisterStore.
	synthMu sync.Mutex

	errChan    chan error
	done       chan struct{}
	closed     bool
	closeMutex sync.RWMutex
}

// ServerOption configures the slave.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger *zap.Logger
}

// WithServerLogger attaches a logger; the default is a nop logger.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(cfg *serverConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// NewServer starts a slave listening on addr (host:port), serving store.
func NewServer(addr string, store RegisterStore, opts ...ServerOption) (*Server, error) {
	cfg := serverConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:      ln,
		store:   store,
		logger:  cfg.logger,
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the address the slave is listening on.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Err returns the channel server-loop errors are sent to.
func (s *Server) Err() <-chan error {
	return s.errChan
}

// IsClosed returns true if the server has been closed.
func (s *Server) IsClosed() bool {
	s.closeMutex.RLock()
	defer s.closeMutex.RUnlock()
	return s.closed
}

// Close stops accepting connections. Closing twice is a no-op.
func (s *Server) Close() error {
	s.closeMutex.Lock()
	if s.closed {
		s.closeMutex.Unlock()
		return nil
	}
	s.closed = true
	s.closeMutex.Unlock()

	close(s.done)
	return s.ln.Close()
}

func (s *Server) acceptLoop() {
	defer close(s.errChan)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.IsClosed() {
				return
			}
			s.errChan <- fmt.Errorf("accept error: %w", err)
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)

	for {
		adu, err := readMBAPFrame(reader)
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("connection closed", zap.Error(err))
			}
			return
		}

		respADU, err := s.serve(adu)
		if err != nil {
			s.logger.Warn("dropping malformed request", zap.Error(err))
			continue
		}
		if _, err := conn.Write(respADU); err != nil {
			if !s.IsClosed() {
				s.logger.Warn("write error", zap.Error(err))
			}
			return
		}
	}
}

// serve decodes one request ADU, synthesizes its response against the
// store and returns the encoded response ADU.
func (s *Server) serve(adu []byte) ([]byte, error) {
	h, pdu, err := decodeADU(adu, false)
	if err != nil {
		return nil, err
	}

	var resp Response
	req, exc := decodeRequestPDU(h, pdu)
	if exc != nil {
		resp = exc
	} else {
		resp = s.synthesize(req)
	}

	respPDU, err := encodePDU(resp)
	if err != nil {
		return nil, err
	}
	return encodeADU(*resp.head(), respPDU), nil
}

// synthesize runs response synthesis under the per-server lock, keeping
// the read-snapshot-then-write sequence atomic against other connections.
func (s *Server) synthesize(req Request) Response {
	s.synthMu.Lock()
	defer s.synthMu.Unlock()
	return req.Respond(s.store)
}
