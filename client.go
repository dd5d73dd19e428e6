package modbus

import (
	"context"
	"sync"
	"time"
)

// Client is a synchronous Modbus master over a single transport. Each
// call runs one exchange to completion before the next begins; exchanges
// are serialized by the underlying Transaction.
type Client struct {
	txn         *Transaction
	unitID      byte
	interceptor Interceptor

	closeMu sync.RWMutex
	closed  bool
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout     time.Duration
	unitID      byte
	headless    bool
	interceptor Interceptor
}

// WithTimeout bounds the wait for each response.
func WithTimeout(d time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = d
	}
}

// WithUnitID addresses a specific slave device.
func WithUnitID(unitID byte) ClientOption {
	return func(cfg *clientConfig) {
		cfg.unitID = unitID
	}
}

// WithHeadlessFraming frames exchanges without the transaction envelope.
func WithHeadlessFraming() ClientOption {
	return func(cfg *clientConfig) {
		cfg.headless = true
	}
}

// WithInterceptor installs an interceptor around client operations; use
// ChainInterceptors to install several.
func WithInterceptor(interceptor Interceptor) ClientOption {
	return func(cfg *clientConfig) {
		cfg.interceptor = interceptor
	}
}

// NewClient builds a master client over transport. The client takes
// ownership of the transport and releases it on Close.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	cfg := clientConfig{
		timeout: DefaultReceiveTimeout,
		unitID:  DefaultUnitID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	topts := []TransactionOption{WithReceiveTimeout(cfg.timeout)}
	if cfg.headless {
		topts = append(topts, WithHeadless())
	}
	return &Client{
		txn:         NewTransaction(transport, topts...),
		unitID:      cfg.unitID,
		interceptor: cfg.interceptor,
	}
}

// DialTCPClient connects to a Modbus/TCP slave and returns a client over
// the established connection.
func DialTCPClient(ctx context.Context, addr string, opts ...ClientOption) (*Client, error) {
	transport, err := DialTCP(ctx, addr)
	if err != nil {
		return nil, err
	}
	return NewClient(transport, opts...), nil
}

// IsClosed returns true if the client has been closed.
func (c *Client) IsClosed() bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	return c.closed
}

// Close releases the transport. Closing twice is a no-op.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	return c.txn.Close()
}

// ReadWriteRegisters runs one combined exchange: read readCount registers
// at readStart, write values at writeStart, and return the values read.
// The read on the slave happens strictly before the write is applied.
// An exception response surfaces as a SlaveError.
func (c *Client) ReadWriteRegisters(ctx context.Context, readStart, readCount, writeStart uint16, values []uint16) ([]uint16, error) {
	if c.IsClosed() {
		return nil, ErrClientClosed
	}

	info := &InterceptorInfo{
		Operation:  OpReadWriteRegisters,
		UnitID:     c.unitID,
		ReadStart:  readStart,
		ReadCount:  readCount,
		WriteStart: writeStart,
		WriteCount: uint16(len(values)),
	}
	invoke := func(ctx context.Context) (interface{}, error) {
		req := NewReadWriteMultipleRequest(c.unitID, readStart, readCount, writeStart, values)
		return c.execute(ctx, req)
	}

	var result interface{}
	var err error
	if c.interceptor != nil {
		result, err = c.interceptor(ctx, info, invoke)
	} else {
		result, err = invoke(ctx)
	}
	if err != nil {
		return nil, err
	}
	read, _ := result.([]uint16)
	return read, nil
}

// Execute runs one exchange with an arbitrary request and returns the
// decoded response. Exception responses are returned as responses, not
// errors.
func (c *Client) Execute(ctx context.Context, req Request) (Response, error) {
	if c.IsClosed() {
		return nil, ErrClientClosed
	}
	return c.txn.Execute(ctx, req)
}

func (c *Client) execute(ctx context.Context, req *ReadWriteMultipleRequest) ([]uint16, error) {
	resp, err := c.txn.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	switch resp := resp.(type) {
	case *ExceptionResponse:
		return nil, resp.Err()
	case *ReadWriteMultipleResponse:
		return resp.Values(), nil
	default:
		return nil, protoErrf("unexpected response with function code 0x%02X", resp.FunctionCode())
	}
}
