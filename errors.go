package modbus

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the transaction layer.
var (
	// ErrNoResponse reports an exchange that resolved with neither a
	// response nor a raised fault.
	ErrNoResponse = errors.New("no response received")

	// ErrClientClosed reports an operation on a closed client.
	ErrClientClosed = errors.New("client is closed")
)

// TruncatedMessageError reports a message whose declared byte count exceeds
// the bytes actually present in the buffer.
type TruncatedMessageError struct {
	Declared int
	Got      int
}

func (e TruncatedMessageError) Error() string {
	return fmt.Sprintf("truncated message: declared %d bytes, got %d", e.Declared, e.Got)
}

// AddressError reports a register access outside a store's addressable space.
type AddressError struct {
	Start uint16
	Count uint16
	Size  uint16
}

func (e AddressError) Error() string {
	return fmt.Sprintf("illegal address: range [%d,%d) exceeds store size %d", e.Start, uint32(e.Start)+uint32(e.Count), e.Size)
}

// SlaveError is an exception response surfaced as an application-level
// failure: the slave understood the request and explicitly rejected it.
type SlaveError struct {
	Function  byte
	Exception ExceptionCode
}

func (e SlaveError) Error() string {
	return fmt.Sprintf("slave exception on function 0x%02X: %s", e.Function, e.Exception)
}

// TransportError wraps a transport-level fault (timeout, connection error)
// raised while submitting or awaiting an exchange.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the wrapped fault was a receive timeout.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return errors.Is(e.Err, errDeadline)
}

var errDeadline = errors.New("receive deadline exceeded")

// ProtocolError reports a malformed or unexpected response shape.
type ProtocolError struct {
	Reason string
}

func (e ProtocolError) Error() string { return "protocol error: " + e.Reason }

func protoErrf(format string, args ...interface{}) error {
	return ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// Outcome is the category an executed exchange resolved to.
type Outcome int

const (
	// OutcomeOK is a matching response carrying register values.
	OutcomeOK Outcome = iota

	// OutcomeSlaveError is an exception response from the peer.
	OutcomeSlaveError

	// OutcomeTransportError is a timeout or connection fault.
	OutcomeTransportError

	// OutcomeProtocolError is a malformed or mismatched exchange.
	OutcomeProtocolError

	// OutcomeNoResponse is an exchange that resolved to nothing at all.
	OutcomeNoResponse

	// OutcomeUnknownResponse is a response of an unrecognized type.
	OutcomeUnknownResponse
)

var outcomeNames = [...]string{
	"ok",
	"slave error",
	"transport error",
	"protocol error",
	"no response",
	"unknown response",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Classify maps an error from Transaction.Execute to its outcome category.
// A nil error classifies as OutcomeOK.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var slave SlaveError
	if errors.As(err, &slave) {
		return OutcomeSlaveError
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return OutcomeTransportError
	}
	if errors.Is(err, ErrNoResponse) {
		return OutcomeNoResponse
	}
	// Truncated responses and shape mismatches are both protocol faults
	// from the master's point of view.
	return OutcomeProtocolError
}
