package bitstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVector_AppendAndRead(t *testing.T) {
	v := New(16)
	v.AppendBits(0x61, 8) // 'a'
	v.AppendBits(0x63, 8) // 'c'

	require.Equal(t, 16, v.Len())
	assert.Equal(t, "0110000101100011", v.String())
	assert.Equal(t, uint64(0x61), v.Uint(0, 8))
	assert.Equal(t, uint64(0x63), v.Uint(8, 8))
	assert.Equal(t, uint64(0b011000010), v.Uint(0, 9))
	assert.Equal(t, uint(1), v.Bit(1))
	assert.Equal(t, uint(0), v.Bit(0))
}

func TestVector_ZeroValue(t *testing.T) {
	var v Vector
	assert.Equal(t, 0, v.Len())
	assert.Equal(t, "", v.String())

	v.AppendBit(1)
	v.AppendBit(0)
	v.AppendBit(7)
	assert.Equal(t, "101", v.String())
}

func TestVector_Truncate(t *testing.T) {
	v := New(0)
	v.AppendBits(0b111111111, 9)
	v.Truncate(3)
	assert.Equal(t, "111", v.String())

	// bits past the cut must not leak into later appends
	v.AppendBits(0, 6)
	assert.Equal(t, "111000000", v.String())

	v.Truncate(0)
	assert.Equal(t, 0, v.Len())
}

func TestVector_OutOfRangePanics(t *testing.T) {
	v := New(8)
	v.AppendBits(1, 4)

	assert.Panics(t, func() { v.Bit(4) })
	assert.Panics(t, func() { v.Uint(2, 3) })
	assert.Panics(t, func() { v.Truncate(5) })
	assert.Panics(t, func() { v.AppendBits(0, 65) })
}

func TestInsertRemoveBit(t *testing.T) {
	tests := []struct {
		name   string
		val    uint64
		width  int
		pos    int
		bit    uint
		result uint64
	}{
		{"marker after three bits", 0b011000010, 9, 3, 1, 0b0111000010},
		{"marker at front", 0b101, 3, 0, 1, 0b1101},
		{"zero at back", 0b101, 3, 3, 0, 0b1010},
		{"all zeros", 0, 9, 3, 1, 0b0001000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InsertBit(tt.val, tt.width, tt.pos, tt.bit)
			assert.Equal(t, tt.result, got)

			back, removed := RemoveBit(got, tt.width+1, tt.pos)
			assert.Equal(t, tt.val, back)
			assert.Equal(t, tt.bit, removed)
		})
	}
}

func TestInsertRemoveBit_Exhaustive9(t *testing.T) {
	for val := uint64(0); val < 1<<9; val++ {
		for pos := 0; pos <= 9; pos++ {
			unit := InsertBit(val, 9, pos, 1)
			require.Less(t, unit, uint64(1<<10))

			back, bit := RemoveBit(unit, 10, pos)
			require.Equal(t, val, back)
			require.Equal(t, uint(1), bit)
		}
	}
}

func TestSplice_InvalidArgumentsPanic(t *testing.T) {
	assert.Panics(t, func() { InsertBit(0, 9, 10, 1) })
	assert.Panics(t, func() { InsertBit(0, 64, 0, 1) })
	assert.Panics(t, func() { RemoveBit(0, 10, 10) })
	assert.Panics(t, func() { RemoveBit(0, 0, 0) })
}
