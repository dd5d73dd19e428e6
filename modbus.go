package modbus

import (
	"fmt"
	"time"
)

const (
	// FuncReadWriteMultipleRegisters is the combined read/write multiple
	// registers function code (0x17).
	FuncReadWriteMultipleRegisters byte = 0x17

	// ExceptionFlag is set on the function code of an exception response.
	ExceptionFlag byte = 0x80

	// MaxWritePayloadWords is the largest write payload the combined
	// function can carry. The byte-count field on the wire is a single
	// byte, so at most 255 payload bytes fit, which is 127 whole words.
	MaxWritePayloadWords = 127

	// readWriteRequestHeadLen is the fixed portion of the combined
	// request body: four 16-bit fields plus the byte count.
	readWriteRequestHeadLen = 9

	// MaxPDULen is the largest protocol data unit, function code included.
	MaxPDULen = 253

	// mbapHeaderLen is the size of the Modbus/TCP framing header.
	mbapHeaderLen = 7

	// tcpProtocolID is the protocol identifier carried in every
	// Modbus/TCP frame.
	tcpProtocolID uint16 = 0
)

const (
	// DefaultReceiveTimeout bounds the wait for a response on one exchange.
	DefaultReceiveTimeout = 500 * time.Millisecond

	// DefaultUnitID addresses the first individual slave device.
	DefaultUnitID byte = 1
)

// ExceptionCode is the single-byte rejection reason carried by an
// exception response.
type ExceptionCode byte

const (
	ExceptionIllegalFunction    ExceptionCode = 0x01
	ExceptionIllegalDataAddress ExceptionCode = 0x02
	ExceptionIllegalDataValue   ExceptionCode = 0x03
	ExceptionServerFailure      ExceptionCode = 0x04
	ExceptionAcknowledge        ExceptionCode = 0x05
	ExceptionServerBusy         ExceptionCode = 0x06
)

var exceptionNames = map[ExceptionCode]string{
	ExceptionIllegalFunction:    "illegal function",
	ExceptionIllegalDataAddress: "illegal data address",
	ExceptionIllegalDataValue:   "illegal data value",
	ExceptionServerFailure:      "server device failure",
	ExceptionAcknowledge:        "acknowledge",
	ExceptionServerBusy:         "server device busy",
}

func (ec ExceptionCode) String() string {
	if s, ok := exceptionNames[ec]; ok {
		return s
	}
	return fmt.Sprintf("exception 0x%02X", byte(ec))
}
