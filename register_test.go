package modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryImageGetSet(t *testing.T) {
	img := NewMemoryImage(4)
	require.Equal(t, uint16(4), img.Size())

	require.NoError(t, img.Set(2, 0xbeef))
	reg, err := img.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xbeef), reg.Value())

	// Registers are live cells: mutating the returned register mutates
	// the image.
	reg.SetValue(7)
	assert.Equal(t, []uint16{0, 0, 7, 0}, img.Values())
}

func TestMemoryImageSignedView(t *testing.T) {
	img := NewMemoryImageWithValues([]uint16{0xffff, 0x7fff, 0x8000})

	reg, err := img.Get(0)
	require.NoError(t, err)
	assert.Equal(t, int16(-1), reg.Signed())

	reg, err = img.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int16(32767), reg.Signed())

	reg, err = img.Get(2)
	require.NoError(t, err)
	assert.Equal(t, int16(-32768), reg.Signed())
}

func TestMemoryImageGetRange(t *testing.T) {
	img := NewMemoryImageWithValues([]uint16{1, 2, 3, 4, 5})

	regs, err := img.GetRange(1, 3)
	require.NoError(t, err)
	require.Len(t, regs, 3)
	assert.Equal(t, uint16(2), regs[0].Value())
	assert.Equal(t, uint16(4), regs[2].Value())

	regs, err = img.GetRange(5, 0)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestMemoryImageOutOfRange(t *testing.T) {
	img := NewMemoryImage(4)

	cases := []struct {
		name  string
		start uint16
		count uint16
	}{
		{"past end", 4, 1},
		{"straddles end", 3, 2},
		{"count overflow", 0xffff, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := img.GetRange(tc.start, tc.count)
			var aerr AddressError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tc.start, aerr.Start)
			assert.Equal(t, uint16(4), aerr.Size)
		})
	}

	_, err := img.Get(4)
	var aerr AddressError
	require.ErrorAs(t, err, &aerr)

	err = img.Set(4, 1)
	require.ErrorAs(t, err, &aerr)
}
