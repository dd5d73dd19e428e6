package modbus

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"time"
)

// Transport abstracts the wire so the transaction logic stays independent
// of how frames travel. Send submits one complete ADU; Recv blocks until
// one complete ADU arrives, the context expires, or the connection fails.
type Transport interface {
	Send(ctx context.Context, adu []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// encodeADU frames a PDU for transmission. Modbus/TCP prepends the MBAP
// header; headless framing carries just the unit identifier, for
// transports that provide their own envelope.
func encodeADU(h Head, pdu []byte) []byte {
	if h.Headless {
		adu := make([]byte, 0, 1+len(pdu))
		adu = append(adu, h.UnitID)
		return append(adu, pdu...)
	}
	adu := make([]byte, mbapHeaderLen, mbapHeaderLen+len(pdu))
	binary.BigEndian.PutUint16(adu[0:], h.TransactionID)
	binary.BigEndian.PutUint16(adu[2:], h.ProtocolID)
	binary.BigEndian.PutUint16(adu[4:], uint16(1+len(pdu)))
	adu[6] = h.UnitID
	return append(adu, pdu...)
}

// decodeADU splits a received frame into its head and PDU.
func decodeADU(adu []byte, headless bool) (Head, []byte, error) {
	if headless {
		if len(adu) < 2 {
			return Head{}, nil, TruncatedMessageError{Declared: 2, Got: len(adu)}
		}
		return Head{UnitID: adu[0], Headless: true}, adu[1:], nil
	}
	if len(adu) < mbapHeaderLen+1 {
		return Head{}, nil, TruncatedMessageError{Declared: mbapHeaderLen + 1, Got: len(adu)}
	}
	h := Head{
		TransactionID: binary.BigEndian.Uint16(adu[0:]),
		ProtocolID:    binary.BigEndian.Uint16(adu[2:]),
		UnitID:        adu[6],
	}
	length := int(binary.BigEndian.Uint16(adu[4:]))
	if length != len(adu)-6 {
		return Head{}, nil, protoErrf("MBAP length %d does not match frame size %d", length, len(adu)-6)
	}
	return h, adu[mbapHeaderLen:], nil
}

// tcpTransport carries MBAP-framed ADUs over a single TCP connection.
type tcpTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

// DialTCP connects to a Modbus/TCP slave at addr (host:port).
func DialTCP(ctx context.Context, addr string) (Transport, error) {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetNoDelay(true)
	}
	return newTCPTransport(conn), nil
}

// NewTCPTransport wraps an established connection. The caller hands over
// ownership; closing the transport closes the connection.
func NewTCPTransport(conn net.Conn) Transport {
	return newTCPTransport(conn)
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	return &tcpTransport{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (t *tcpTransport) Send(ctx context.Context, adu []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
	} else {
		_ = t.conn.SetWriteDeadline(time.Time{})
	}
	_, err := t.conn.Write(adu)
	return err
}

func (t *tcpTransport) Recv(ctx context.Context) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(deadline)
	} else {
		_ = t.conn.SetReadDeadline(time.Time{})
	}
	adu, err := readMBAPFrame(t.reader)
	if err != nil {
		// If the context expired, surface that instead of the net error.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return adu, nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// readMBAPFrame reads one complete MBAP-framed ADU: the 7-byte header,
// whose length field covers unit identifier plus PDU, then the PDU.
func readMBAPFrame(reader *bufio.Reader) ([]byte, error) {
	header := make([]byte, mbapHeaderLen)
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(header[4:6]))
	if length < 1 || length > MaxPDULen+1 {
		return nil, protoErrf("invalid MBAP length %d", length)
	}
	adu := make([]byte, mbapHeaderLen+length-1)
	copy(adu, header)
	if _, err := io.ReadFull(reader, adu[mbapHeaderLen:]); err != nil {
		return nil, err
	}
	return adu, nil
}
