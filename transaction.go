package modbus

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// Transaction drives single-shot request/response exchanges over a
// transport: encode, send, block for the response up to the receive
// timeout, decode, verify. One Transaction serializes its exchanges; no
// two are ever in flight at once. There is no mid-flight abort beyond
// the timeout and the caller's context.
type Transaction struct {
	transport Transport
	timeout   time.Duration
	headless  bool

	mu  sync.Mutex
	tid uint16
}

// TransactionOption configures a Transaction.
type TransactionOption func(*Transaction)

// WithReceiveTimeout bounds the wait for each response. Zero waits
// indefinitely (the caller's context still applies).
func WithReceiveTimeout(d time.Duration) TransactionOption {
	return func(t *Transaction) {
		t.timeout = d
	}
}

// WithHeadless frames exchanges without the transaction envelope, for
// transports that provide their own framing.
func WithHeadless() TransactionOption {
	return func(t *Transaction) {
		t.headless = true
	}
}

// NewTransaction returns a Transaction over transport with the default
// receive timeout.
func NewTransaction(transport Transport, opts ...TransactionOption) *Transaction {
	t := &Transaction{
		transport: transport,
		timeout:   DefaultReceiveTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Execute runs one exchange and resolves it to exactly one response or
// one typed error. Exception responses are returned as responses, not
// errors: the exchange itself succeeded, the application did not.
func (t *Transaction) Execute(ctx context.Context, req Request) (Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := req.head()
	h.Headless = t.headless
	if !t.headless {
		t.tid++
		h.TransactionID = t.tid
		h.ProtocolID = tcpProtocolID
	}

	pdu, err := encodePDU(req)
	if err != nil {
		return nil, err
	}
	adu := encodeADU(*h, pdu)

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	if err := t.transport.Send(ctx, adu); err != nil {
		return nil, &TransportError{Err: err}
	}

	raw, err := t.transport.Recv(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, &TransportError{Err: errDeadline}
		}
		return nil, &TransportError{Err: err}
	}
	if len(raw) == 0 {
		return nil, ErrNoResponse
	}

	respHead, respPDU, err := decodeADU(raw, t.headless)
	if err != nil {
		return nil, err
	}
	if !t.headless {
		if respHead.TransactionID != h.TransactionID {
			return nil, protoErrf("transaction identifier mismatch: sent %d, received %d", h.TransactionID, respHead.TransactionID)
		}
		if respHead.ProtocolID != tcpProtocolID {
			return nil, protoErrf("unexpected protocol identifier %d", respHead.ProtocolID)
		}
	}
	if respHead.UnitID != h.UnitID {
		return nil, protoErrf("unit identifier mismatch: sent %d, received %d", h.UnitID, respHead.UnitID)
	}

	resp, err := decodeResponsePDU(respHead, respPDU)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases the underlying transport.
func (t *Transaction) Close() error {
	return t.transport.Close()
}
