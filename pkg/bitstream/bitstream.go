// Package bitstream provides a growable MSB-first bit vector and the helpers
// used to splice single bits in and out of fixed-width code units.
package bitstream

import (
	"fmt"
	"strings"
)

// MaxWidth is the widest value AppendBits and Uint can move in one call.
const MaxWidth = 64

// Vector is a growable sequence of bits. Bit 0 is the most significant bit
// of the first byte. The zero value is an empty vector ready to use.
type Vector struct {
	buf []byte
	n   int // number of valid bits in buf
}

// New returns an empty Vector with room for at least capBits bits.
func New(capBits int) *Vector {
	if capBits < 0 {
		capBits = 0
	}
	return &Vector{buf: make([]byte, 0, (capBits+7)/8)}
}

// Len returns the number of bits in the vector.
func (v *Vector) Len() int {
	return v.n
}

// AppendBit appends a single bit. Any non-zero b is treated as 1.
func (v *Vector) AppendBit(b uint) {
	if v.n%8 == 0 {
		v.buf = append(v.buf, 0)
	}
	if b != 0 {
		v.buf[v.n/8] |= 0x80 >> (v.n % 8)
	}
	v.n++
}

// AppendBits appends the low width bits of val, most significant first.
// For example, AppendBits(5, 4) appends 0101.
func (v *Vector) AppendBits(val uint64, width int) {
	if width < 0 || width > MaxWidth {
		panic(fmt.Sprintf("bitstream: invalid width %d", width))
	}
	for i := width - 1; i >= 0; i-- {
		v.AppendBit(uint(val>>uint(i)) & 1)
	}
}

// Bit returns the bit at index i.
func (v *Vector) Bit(i int) uint {
	if i < 0 || i >= v.n {
		panic(fmt.Sprintf("bitstream: index %d out of range [0, %d)", i, v.n))
	}
	return uint(v.buf[i/8]>>(7-uint(i%8))) & 1
}

// Uint reads width bits starting at start and returns them as an unsigned
// integer, most significant bit first.
func (v *Vector) Uint(start, width int) uint64 {
	if width < 0 || width > MaxWidth {
		panic(fmt.Sprintf("bitstream: invalid width %d", width))
	}
	if start < 0 || start+width > v.n {
		panic(fmt.Sprintf("bitstream: range [%d, %d) out of range [0, %d)", start, start+width, v.n))
	}
	var result uint64
	for i := start; i < start+width; i++ {
		result = result<<1 | uint64(v.Bit(i))
	}
	return result
}

// Truncate drops every bit at index n and beyond.
func (v *Vector) Truncate(n int) {
	if n < 0 || n > v.n {
		panic(fmt.Sprintf("bitstream: truncate length %d out of range [0, %d]", n, v.n))
	}
	v.n = n
	v.buf = v.buf[:(n+7)/8]
	if rem := n % 8; rem != 0 {
		// keep later appends from OR-ing into stale bits
		v.buf[len(v.buf)-1] &= byte(0xFF << (8 - uint(rem)))
	}
}

// String renders the vector as a run of '0' and '1' characters.
func (v *Vector) String() string {
	var sb strings.Builder
	sb.Grow(v.n)
	for i := 0; i < v.n; i++ {
		if v.Bit(i) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// InsertBit inserts bit into the width-bit value val so that it lands at
// index pos counted from the most significant bit. The result is width+1
// bits wide. For example, InsertBit(0b011000010, 9, 3, 1) == 0b0111000010.
func InsertBit(val uint64, width, pos int, bit uint) uint64 {
	if width < 0 || width >= MaxWidth || pos < 0 || pos > width {
		panic(fmt.Sprintf("bitstream: cannot insert at %d into a %d-bit value", pos, width))
	}
	lowWidth := uint(width - pos)
	low := val & (1<<lowWidth - 1)
	high := val >> lowWidth
	return high<<(lowWidth+1) | uint64(bit&1)<<lowWidth | low
}

// RemoveBit removes the bit at index pos (counted from the most significant
// bit) of the width-bit value val. It returns the remaining width-1 bits and
// the removed bit. It is the inverse of InsertBit.
func RemoveBit(val uint64, width, pos int) (uint64, uint) {
	if width <= 0 || width > MaxWidth || pos < 0 || pos >= width {
		panic(fmt.Sprintf("bitstream: cannot remove %d from a %d-bit value", pos, width))
	}
	lowWidth := uint(width - pos - 1)
	bit := uint(val>>lowWidth) & 1
	low := val & (1<<lowWidth - 1)
	high := val >> (lowWidth + 1)
	return high<<lowWidth | low, bit
}
