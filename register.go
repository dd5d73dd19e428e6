package modbus

// Register is a single 16-bit cell in a process image. Identity is
// positional: a register belongs to the store that allocated it, and
// messages only carry copies of its value.
type Register struct {
	value uint16
}

// NewRegister returns a register holding v.
func NewRegister(v uint16) *Register {
	return &Register{value: v}
}

// Value returns the register content as an unsigned word.
func (r *Register) Value() uint16 { return r.value }

// Signed returns the register content reinterpreted as a signed word.
func (r *Register) Signed() int16 { return int16(r.value) }

// SetValue replaces the register content.
func (r *Register) SetValue(v uint16) { r.value = v }

// RegisterStore is the slave-side process image consumed by response
// synthesis. GetRange returns the live cells, not copies: callers that
// need a stable view must snapshot the values themselves, and callers
// that write through the returned cells mutate the store in place.
//
// A store is not required to synchronize access on its own. Response
// synthesis spans two calls (a read fetch, then a write fetch-and-mutate)
// that must observe a consistent state, so anything exposing one store
// to concurrent synthesis must serialize per-store access; the Server in
// this package does exactly that.
type RegisterStore interface {
	// GetRange returns count consecutive registers starting at start,
	// or an AddressError if any part of the range is outside the store.
	GetRange(start, count uint16) ([]*Register, error)

	// Get returns the single register at index.
	Get(index uint16) (*Register, error)

	// Set stores value at index.
	Set(index uint16, value uint16) error
}

// MemoryImage is an in-memory RegisterStore backed by a flat slice.
// Indices are zero-based within the image, independent of wire addresses.
type MemoryImage struct {
	regs []*Register
}

// NewMemoryImage returns a zero-filled image with size registers.
func NewMemoryImage(size uint16) *MemoryImage {
	regs := make([]*Register, size)
	for i := range regs {
		regs[i] = &Register{}
	}
	return &MemoryImage{regs: regs}
}

// NewMemoryImageWithValues returns an image pre-populated with values.
func NewMemoryImageWithValues(values []uint16) *MemoryImage {
	m := NewMemoryImage(uint16(len(values)))
	for i, v := range values {
		m.regs[i].value = v
	}
	return m
}

// Size returns the number of registers in the image.
func (m *MemoryImage) Size() uint16 { return uint16(len(m.regs)) }

// GetRange implements RegisterStore.
func (m *MemoryImage) GetRange(start, count uint16) ([]*Register, error) {
	if int(start)+int(count) > len(m.regs) {
		return nil, AddressError{Start: start, Count: count, Size: m.Size()}
	}
	return m.regs[start : start+count], nil
}

// Get implements RegisterStore.
func (m *MemoryImage) Get(index uint16) (*Register, error) {
	if int(index) >= len(m.regs) {
		return nil, AddressError{Start: index, Count: 1, Size: m.Size()}
	}
	return m.regs[index], nil
}

// Set implements RegisterStore.
func (m *MemoryImage) Set(index uint16, value uint16) error {
	reg, err := m.Get(index)
	if err != nil {
		return err
	}
	reg.SetValue(value)
	return nil
}

// Values returns a copy of the current register contents.
func (m *MemoryImage) Values() []uint16 {
	out := make([]uint16, len(m.regs))
	for i, r := range m.regs {
		out[i] = r.value
	}
	return out
}

var _ RegisterStore = (*MemoryImage)(nil)
