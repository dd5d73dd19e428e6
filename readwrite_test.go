package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWriteRequestEncodeLayout(t *testing.T) {
	req := NewReadWriteMultipleRequest(5, 0x0102, 0x0304, 0x0506, []uint16{0xdead, 0xbeef})

	body, err := req.EncodeData()
	require.NoError(t, err)

	expected := []byte{
		0x01, 0x02, // read start
		0x03, 0x04, // read count
		0x05, 0x06, // write start
		0x00, 0x02, // write count
		0x04,       // byte count
		0xde, 0xad, // payload
		0xbe, 0xef,
	}
	assert.Equal(t, expected, body)
}

func TestReadWriteRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		readStart  uint16
		readCount  uint16
		writeStart uint16
		values     []uint16
	}{
		{"empty write", 0, 1, 0, nil},
		{"single word", 10, 4, 20, []uint16{0xffff}},
		{"several words", 0x1234, 0x0008, 0x4321, []uint16{0, 1, 0x8000, 0x7fff}},
		{"max payload", 0, 125, 200, make([]uint16, MaxWritePayloadWords)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewReadWriteMultipleRequest(1, tt.readStart, tt.readCount, tt.writeStart, tt.values)

			body, err := req.EncodeData()
			require.NoError(t, err)

			// Total length and byte-count field are fixed by the layout.
			assert.Len(t, body, 9+2*len(tt.values))
			assert.Equal(t, byte(2*len(tt.values)), body[8])

			decoded := &ReadWriteMultipleRequest{}
			require.NoError(t, decoded.DecodeData(body))
			assert.Equal(t, tt.readStart, decoded.ReadStart)
			assert.Equal(t, tt.readCount, decoded.ReadCount)
			assert.Equal(t, tt.writeStart, decoded.WriteStart)
			assert.Equal(t, uint16(len(tt.values)), decoded.WriteCount())
			assert.Equal(t, req.Values(), decoded.Values())
		})
	}
}

func TestReadWriteRequestSetValuesRecomputesCount(t *testing.T) {
	req := NewReadWriteMultipleRequest(1, 0, 1, 0, []uint16{1, 2, 3})
	assert.Equal(t, uint16(3), req.WriteCount())
	assert.Equal(t, 6, req.ByteCount())

	src := []uint16{9}
	req.SetValues(src)
	assert.Equal(t, uint16(1), req.WriteCount())
	assert.Equal(t, 2, req.ByteCount())

	// The payload is a copy, not an alias of the caller's slice.
	src[0] = 42
	assert.Equal(t, []uint16{9}, req.Values())
}

func TestReadWriteRequestEncodeRejectsOversizedPayload(t *testing.T) {
	req := NewReadWriteMultipleRequest(1, 0, 1, 0, make([]uint16, MaxWritePayloadWords+1))

	_, err := req.EncodeData()
	var perr ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestReadWriteRequestDecodeTruncated(t *testing.T) {
	// Declares 10 payload bytes but supplies only 6.
	body := []byte{
		0x00, 0x00, 0x00, 0x04,
		0x00, 0x00, 0x00, 0x05,
		10,
		1, 2, 3, 4, 5, 6,
	}
	req := &ReadWriteMultipleRequest{}
	err := req.DecodeData(body)

	var terr TruncatedMessageError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 10, terr.Declared)
	assert.Equal(t, 6, terr.Got)
}

func TestReadWriteRequestDecodeShortHead(t *testing.T) {
	req := &ReadWriteMultipleRequest{}
	err := req.DecodeData([]byte{0x00, 0x01, 0x00})

	var terr TruncatedMessageError
	require.ErrorAs(t, err, &terr)
}

// reverseHandler flips payload byte pairs, standing in for a device whose
// registers are not plain words.
type reverseHandler struct{}

func (reverseHandler) EncodePayload(_ uint16, values []uint16) ([]byte, error) {
	b := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b, nil
}

func (reverseHandler) DecodePayload(_ uint16, count uint16, data []byte) ([]uint16, error) {
	if len(data) != int(count)*2 {
		return nil, fmt.Errorf("payload size %d does not match count %d", len(data), count)
	}
	values := make([]uint16, count)
	for i := range values {
		values[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return values, nil
}

func TestReadWriteRequestCustomPayloadHandler(t *testing.T) {
	req := NewReadWriteMultipleRequest(1, 0, 2, 4, []uint16{0x0102, 0x0304})
	req.SetPayloadHandler(reverseHandler{})

	body, err := req.EncodeData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, body[9:])

	decoded := &ReadWriteMultipleRequest{}
	decoded.SetPayloadHandler(reverseHandler{})
	require.NoError(t, decoded.DecodeData(body))
	assert.Equal(t, []uint16{0x0102, 0x0304}, decoded.Values())
}

func TestRespondOverlapReadsBeforeWrite(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{10, 20, 30, 40})
	req := NewReadWriteMultipleRequest(1, 0, 4, 2, []uint16{99, 99})

	resp := req.Respond(store)

	rw, ok := resp.(*ReadWriteMultipleResponse)
	require.True(t, ok, "expected a value-carrying response, got %T", resp)

	// The response reports the pre-write snapshot even though the read
	// and write ranges overlap.
	assert.Equal(t, []uint16{10, 20, 30, 40}, rw.Values())
	assert.Equal(t, []uint16{10, 20, 99, 99}, store.Values())
}

func TestRespondIllegalReadAddress(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{1, 2, 3, 4})
	req := NewReadWriteMultipleRequest(1, 2, 10, 0, []uint16{7})

	resp := req.Respond(store)

	exc, ok := resp.(*ExceptionResponse)
	require.True(t, ok)
	assert.Equal(t, ExceptionIllegalDataAddress, exc.Exception)
	assert.Equal(t, FuncReadWriteMultipleRegisters, exc.Function)
	assert.Equal(t, []uint16{1, 2, 3, 4}, store.Values())
}

func TestRespondIllegalWriteAddressLeavesStoreUnchanged(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{1, 2, 3, 4})
	req := NewReadWriteMultipleRequest(1, 0, 2, 3, []uint16{8, 9})

	resp := req.Respond(store)

	exc, ok := resp.(*ExceptionResponse)
	require.True(t, ok)
	assert.Equal(t, ExceptionIllegalDataAddress, exc.Exception)
	assert.Equal(t, []uint16{1, 2, 3, 4}, store.Values())
}

func TestRespondReadOnlyIsIdempotent(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{5, 6, 7})

	first := NewReadWriteMultipleRequest(1, 0, 3, 0, nil).Respond(store)
	second := NewReadWriteMultipleRequest(1, 0, 3, 0, nil).Respond(store)

	rw1, ok := first.(*ReadWriteMultipleResponse)
	require.True(t, ok)
	rw2, ok := second.(*ReadWriteMultipleResponse)
	require.True(t, ok)
	assert.Equal(t, rw1.Values(), rw2.Values())
	assert.Equal(t, []uint16{5, 6, 7}, store.Values())
}

func TestRespondMirrorsRequestIdentity(t *testing.T) {
	store := NewMemoryImageWithValues([]uint16{1, 2})
	req := NewReadWriteMultipleRequest(9, 0, 2, 0, nil)
	req.TransactionID = 0x0a0b

	resp := req.Respond(store)
	h := resp.head()
	assert.Equal(t, uint16(0x0a0b), h.TransactionID)
	assert.Equal(t, byte(9), h.UnitID)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := NewReadWriteMultipleResponse(Head{UnitID: 1}, []uint16{0x1122, 0x3344, 0x8000})

	body, err := resp.EncodeData()
	require.NoError(t, err)
	assert.Equal(t, byte(6), body[0])
	assert.Len(t, body, 7)

	decoded := &ReadWriteMultipleResponse{}
	require.NoError(t, decoded.DecodeData(body))
	assert.Equal(t, 3, decoded.WordCount())
	assert.Equal(t, []uint16{0x1122, 0x3344, 0x8000}, decoded.Values())
	assert.Equal(t, int16(-32768), decoded.SignedValue(2))
}

func TestResponseDecodeTruncated(t *testing.T) {
	decoded := &ReadWriteMultipleResponse{}
	err := decoded.DecodeData([]byte{8, 0x00, 0x01})

	var terr TruncatedMessageError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 8, terr.Declared)
	assert.Equal(t, 2, terr.Got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{"nil", nil, OutcomeOK},
		{"slave", SlaveError{Function: 0x17, Exception: ExceptionIllegalDataAddress}, OutcomeSlaveError},
		{"transport", &TransportError{Err: errors.New("broken pipe")}, OutcomeTransportError},
		{"no response", ErrNoResponse, OutcomeNoResponse},
		{"protocol", ProtocolError{Reason: "mismatch"}, OutcomeProtocolError},
		{"truncated", TruncatedMessageError{Declared: 4, Got: 1}, OutcomeProtocolError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.outcome, Classify(tt.err))
		})
	}
}
