package modbus

import (
	"encoding/binary"
)

// Body layout of the combined read/write request, all fields big-endian.
const (
	rwReadStartOffset  = 0
	rwReadCountOffset  = 2
	rwWriteStartOffset = 4
	rwWriteCountOffset = 6
	rwByteCountOffset  = 8
	rwPayloadOffset    = 9
)

// PayloadHandler is an injectable strategy replacing the fixed
// two-bytes-per-register interpretation of the write payload. When a
// request carries one, the handler fully owns the byte-count bytes on the
// wire: DecodePayload turns them into write values and EncodePayload
// produces them from write values. Devices whose registers hold non-word
// data (strings, packed structs) supply their own handler; everything
// else uses the default word codec.
type PayloadHandler interface {
	EncodePayload(writeStart uint16, values []uint16) ([]byte, error)
	DecodePayload(writeStart, writeCount uint16, data []byte) ([]uint16, error)
}

// ReadWriteMultipleRequest is the combined read/write multiple registers
// request (function 0x17): read ReadCount registers at ReadStart, then
// write the carried values starting at WriteStart, in one exchange.
//
// The write count is derived from the value payload and kept consistent
// by construction; it is never independently settable.
type ReadWriteMultipleRequest struct {
	Head
	ReadStart  uint16
	ReadCount  uint16
	WriteStart uint16

	writeCount uint16
	values     []uint16
	handler    PayloadHandler
}

// NewReadWriteMultipleRequest builds a request for one combined exchange.
// The values slice is copied; mutate it later via SetValues.
func NewReadWriteMultipleRequest(unitID byte, readStart, readCount, writeStart uint16, values []uint16) *ReadWriteMultipleRequest {
	r := &ReadWriteMultipleRequest{
		Head:       Head{UnitID: unitID},
		ReadStart:  readStart,
		ReadCount:  readCount,
		WriteStart: writeStart,
	}
	r.SetValues(values)
	return r
}

// SetValues replaces the write payload. The slice is reallocated and the
// write count recomputed, so the two can never go stale relative to each
// other.
func (r *ReadWriteMultipleRequest) SetValues(values []uint16) {
	r.values = append([]uint16(nil), values...)
	r.writeCount = uint16(len(r.values))
}

// Values returns a copy of the write payload.
func (r *ReadWriteMultipleRequest) Values() []uint16 {
	return append([]uint16(nil), r.values...)
}

// WriteCount returns the number of registers to be written.
func (r *ReadWriteMultipleRequest) WriteCount() uint16 { return r.writeCount }

// ByteCount returns the wire byte count of the write payload.
func (r *ReadWriteMultipleRequest) ByteCount() int { return int(r.writeCount) * 2 }

// SetPayloadHandler installs a custom payload strategy. A nil handler
// restores the default word codec.
func (r *ReadWriteMultipleRequest) SetPayloadHandler(h PayloadHandler) { r.handler = h }

func (r *ReadWriteMultipleRequest) FunctionCode() byte { return FuncReadWriteMultipleRegisters }

// EncodeData renders the request body:
//
//	readStart(2) readCount(2) writeStart(2) writeCount(2) byteCount(1) payload
func (r *ReadWriteMultipleRequest) EncodeData() ([]byte, error) {
	payload, err := r.encodePayload()
	if err != nil {
		return nil, err
	}
	if len(payload) > 0xff {
		return nil, protoErrf("write payload of %d bytes does not fit the byte-count field", len(payload))
	}
	b := make([]byte, readWriteRequestHeadLen, readWriteRequestHeadLen+len(payload))
	binary.BigEndian.PutUint16(b[rwReadStartOffset:], r.ReadStart)
	binary.BigEndian.PutUint16(b[rwReadCountOffset:], r.ReadCount)
	binary.BigEndian.PutUint16(b[rwWriteStartOffset:], r.WriteStart)
	binary.BigEndian.PutUint16(b[rwWriteCountOffset:], r.writeCount)
	b[rwByteCountOffset] = byte(len(payload))
	return append(b, payload...), nil
}

func (r *ReadWriteMultipleRequest) encodePayload() ([]byte, error) {
	if r.handler != nil {
		return r.handler.EncodePayload(r.WriteStart, r.values)
	}
	if r.writeCount > MaxWritePayloadWords {
		return nil, protoErrf("write count %d exceeds maximum of %d words", r.writeCount, MaxWritePayloadWords)
	}
	payload := make([]byte, 2*r.writeCount)
	for i, v := range r.values {
		binary.BigEndian.PutUint16(payload[i*2:], v)
	}
	return payload, nil
}

// DecodeData populates the request from a body received off the wire.
// It fails with TruncatedMessageError when fewer payload bytes remain
// than the byte count declares.
func (r *ReadWriteMultipleRequest) DecodeData(b []byte) error {
	if len(b) < readWriteRequestHeadLen {
		return TruncatedMessageError{Declared: readWriteRequestHeadLen, Got: len(b)}
	}
	r.ReadStart = binary.BigEndian.Uint16(b[rwReadStartOffset:])
	r.ReadCount = binary.BigEndian.Uint16(b[rwReadCountOffset:])
	r.WriteStart = binary.BigEndian.Uint16(b[rwWriteStartOffset:])
	wireCount := binary.BigEndian.Uint16(b[rwWriteCountOffset:])
	byteCount := int(b[rwByteCountOffset])

	payload := b[rwPayloadOffset:]
	if len(payload) < byteCount {
		return TruncatedMessageError{Declared: byteCount, Got: len(payload)}
	}
	payload = payload[:byteCount]

	if r.handler != nil {
		values, err := r.handler.DecodePayload(r.WriteStart, wireCount, payload)
		if err != nil {
			return err
		}
		r.values = values
		r.writeCount = uint16(len(values))
		return nil
	}

	// byteCount and writeCount are the same datum on the wire; the byte
	// count wins, exactly as it bounds the payload.
	r.writeCount = uint16(byteCount / 2)
	r.values = make([]uint16, r.writeCount)
	for i := range r.values {
		r.values[i] = binary.BigEndian.Uint16(payload[i*2:])
	}
	return nil
}

// Respond synthesizes the slave-side answer against store. The read
// snapshot is taken strictly before the write is applied, so the response
// reports pre-write values even when the two ranges overlap; that
// ordering is the point of the combined function. An address fault on
// either range yields an IllegalDataAddress exception, and a faulting
// write leaves the store unmodified.
func (r *ReadWriteMultipleRequest) Respond(store RegisterStore) Response {
	readRegs, err := store.GetRange(r.ReadStart, r.ReadCount)
	if err != nil {
		return r.exception(ExceptionIllegalDataAddress)
	}
	snapshot := make([]uint16, len(readRegs))
	for i, reg := range readRegs {
		snapshot[i] = reg.Value()
	}

	writeRegs, err := store.GetRange(r.WriteStart, r.writeCount)
	if err != nil {
		return r.exception(ExceptionIllegalDataAddress)
	}
	for i, reg := range writeRegs {
		reg.SetValue(r.values[i])
	}

	return &ReadWriteMultipleResponse{Head: responseHead(r.Head), values: snapshot}
}

func (r *ReadWriteMultipleRequest) exception(code ExceptionCode) *ExceptionResponse {
	return &ExceptionResponse{
		Head:      responseHead(r.Head),
		Function:  r.FunctionCode(),
		Exception: code,
	}
}

// ReadWriteMultipleResponse carries the register values read by a
// combined read/write exchange.
type ReadWriteMultipleResponse struct {
	Head
	values []uint16
}

// NewReadWriteMultipleResponse builds a response carrying values. Used by
// stores and tests that synthesize responses directly.
func NewReadWriteMultipleResponse(head Head, values []uint16) *ReadWriteMultipleResponse {
	return &ReadWriteMultipleResponse{Head: head, values: append([]uint16(nil), values...)}
}

func (r *ReadWriteMultipleResponse) FunctionCode() byte { return FuncReadWriteMultipleRegisters }

// WordCount returns the number of register values carried.
func (r *ReadWriteMultipleResponse) WordCount() int { return len(r.values) }

// Values returns a copy of the carried register values.
func (r *ReadWriteMultipleResponse) Values() []uint16 {
	return append([]uint16(nil), r.values...)
}

// Value returns the i-th register value as an unsigned word.
func (r *ReadWriteMultipleResponse) Value(i int) uint16 { return r.values[i] }

// SignedValue returns the i-th register value reinterpreted as signed.
func (r *ReadWriteMultipleResponse) SignedValue(i int) int16 { return int16(r.values[i]) }

// EncodeData renders the response body: byteCount(1) followed by the
// register values, two bytes each.
func (r *ReadWriteMultipleResponse) EncodeData() ([]byte, error) {
	if len(r.values)*2 > 0xff {
		return nil, protoErrf("response payload of %d words does not fit the byte-count field", len(r.values))
	}
	b := make([]byte, 1+2*len(r.values))
	b[0] = byte(2 * len(r.values))
	for i, v := range r.values {
		binary.BigEndian.PutUint16(b[1+i*2:], v)
	}
	return b, nil
}

// DecodeData populates the response from a body received off the wire.
func (r *ReadWriteMultipleResponse) DecodeData(b []byte) error {
	if len(b) < 1 {
		return TruncatedMessageError{Declared: 1, Got: 0}
	}
	byteCount := int(b[0])
	payload := b[1:]
	if len(payload) < byteCount {
		return TruncatedMessageError{Declared: byteCount, Got: len(payload)}
	}
	r.values = make([]uint16, byteCount/2)
	for i := range r.values {
		r.values[i] = binary.BigEndian.Uint16(payload[i*2:])
	}
	return nil
}
