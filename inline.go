package modbus

import (
	"context"
	"sync"
)

// InlineTransport synthesizes responses directly against a register store,
// bypassing the network while keeping the full codec path: every exchange
// still encodes the request ADU, decodes it on the "slave" side and encodes
// the response back. Useful for tests and for exercising payload handlers
// without a live slave.
type InlineTransport struct {
	store RegisterStore

	mu      sync.Mutex
	pending [][]byte
	closed  bool
}

// NewInlineTransport returns a transport serving store in process.
func NewInlineTransport(store RegisterStore) *InlineTransport {
	return &InlineTransport{store: store}
}

var _ Transport = (*InlineTransport)(nil)

func (t *InlineTransport) Send(_ context.Context, adu []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClientClosed
	}

	h, pdu, err := decodeADU(adu, false)
	if err != nil {
		return err
	}

	var resp Response
	req, exc := decodeRequestPDU(h, pdu)
	if exc != nil {
		resp = exc
	} else {
		resp = req.Respond(t.store)
	}

	respPDU, err := encodePDU(resp)
	if err != nil {
		return err
	}
	t.pending = append(t.pending, encodeADU(*resp.head(), respPDU))
	return nil
}

func (t *InlineTransport) Recv(_ context.Context) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClientClosed
	}
	if len(t.pending) == 0 {
		return nil, ErrNoResponse
	}
	adu := t.pending[0]
	t.pending = t.pending[1:]
	return adu, nil
}

func (t *InlineTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
