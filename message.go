package modbus

// Head carries the identity fields shared by every request and response.
// A headless message is framed without the transaction envelope, on
// transports that provide their own framing.
type Head struct {
	TransactionID uint16
	ProtocolID    uint16
	UnitID        byte
	Headless      bool
}

// head lets message types expose their Head by embedding it.
func (h *Head) head() *Head { return h }

// responseHead mirrors the identity of a request into its response.
func responseHead(h Head) Head {
	return Head{
		TransactionID: h.TransactionID,
		ProtocolID:    h.ProtocolID,
		UnitID:        h.UnitID,
		Headless:      h.Headless,
	}
}

// Request is a decoded Modbus request. EncodeData and DecodeData work on
// the request body, i.e. the protocol data unit without the leading
// function code. Respond synthesizes the slave-side answer against a
// register store.
type Request interface {
	FunctionCode() byte
	EncodeData() ([]byte, error)
	DecodeData([]byte) error
	Respond(store RegisterStore) Response
	head() *Head
}

// Response is a decoded Modbus response. It is read-only once built.
type Response interface {
	FunctionCode() byte
	EncodeData() ([]byte, error)
	DecodeData([]byte) error
	head() *Head
}

// message is the encodable half shared by requests and responses.
type message interface {
	FunctionCode() byte
	EncodeData() ([]byte, error)
}

// encodePDU renders a message as function code plus body.
func encodePDU(m message) ([]byte, error) {
	data, err := m.EncodeData()
	if err != nil {
		return nil, err
	}
	pdu := make([]byte, 0, 1+len(data))
	pdu = append(pdu, m.FunctionCode())
	pdu = append(pdu, data...)
	if len(pdu) > MaxPDULen {
		return nil, protoErrf("PDU length %d exceeds maximum %d", len(pdu), MaxPDULen)
	}
	return pdu, nil
}

// decodeRequestPDU builds a request from a PDU received on the slave side.
// Unsupported function codes decode to nil with an IllegalFunction
// exception the caller should send back.
func decodeRequestPDU(h Head, pdu []byte) (Request, *ExceptionResponse) {
	if len(pdu) == 0 {
		return nil, &ExceptionResponse{Head: h, Function: 0, Exception: ExceptionIllegalFunction}
	}
	switch pdu[0] {
	case FuncReadWriteMultipleRegisters:
		req := &ReadWriteMultipleRequest{Head: h}
		if err := req.DecodeData(pdu[1:]); err != nil {
			return nil, &ExceptionResponse{Head: h, Function: pdu[0], Exception: ExceptionIllegalDataValue}
		}
		return req, nil
	default:
		return nil, &ExceptionResponse{Head: h, Function: pdu[0], Exception: ExceptionIllegalFunction}
	}
}

// decodeResponsePDU builds a response from a PDU received on the master
// side. Exception responses decode to *ExceptionResponse; responses with
// a function code this package does not know decode to *RawResponse so
// the caller can still report them.
func decodeResponsePDU(h Head, pdu []byte) (Response, error) {
	if len(pdu) == 0 {
		return nil, protoErrf("empty response PDU")
	}
	fc := pdu[0]
	if fc&ExceptionFlag != 0 {
		resp := &ExceptionResponse{Head: h, Function: fc & ^ExceptionFlag}
		if err := resp.DecodeData(pdu[1:]); err != nil {
			return nil, err
		}
		return resp, nil
	}
	switch fc {
	case FuncReadWriteMultipleRegisters:
		resp := &ReadWriteMultipleResponse{Head: h}
		if err := resp.DecodeData(pdu[1:]); err != nil {
			return nil, err
		}
		return resp, nil
	default:
		return &RawResponse{Head: h, Function: fc, Data: append([]byte(nil), pdu[1:]...)}, nil
	}
}

// ExceptionResponse signals an application-level rejection. Function holds
// the original function code without the exception flag.
type ExceptionResponse struct {
	Head
	Function  byte
	Exception ExceptionCode
}

func (r *ExceptionResponse) FunctionCode() byte { return r.Function | ExceptionFlag }

func (r *ExceptionResponse) EncodeData() ([]byte, error) {
	return []byte{byte(r.Exception)}, nil
}

func (r *ExceptionResponse) DecodeData(b []byte) error {
	if len(b) < 1 {
		return TruncatedMessageError{Declared: 1, Got: len(b)}
	}
	r.Exception = ExceptionCode(b[0])
	return nil
}

// Err returns the exception as a SlaveError.
func (r *ExceptionResponse) Err() error {
	return SlaveError{Function: r.Function, Exception: r.Exception}
}

// RawResponse preserves a response whose function code this package does
// not decode. It only ever appears on the master side.
type RawResponse struct {
	Head
	Function byte
	Data     []byte
}

func (r *RawResponse) FunctionCode() byte { return r.Function }

func (r *RawResponse) EncodeData() ([]byte, error) { return r.Data, nil }

func (r *RawResponse) DecodeData(b []byte) error {
	r.Data = append([]byte(nil), b...)
	return nil
}
