package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_FixedParameters(t *testing.T) {
	for _, seed := range []int32{0, 1, 500000, -1} {
		tb, err := NewTable(BasicAlphabet, seed, false)
		require.NoError(t, err)
		assert.Equal(t, 0, tb.Offset())
		assert.Equal(t, 1, tb.Shift())
		assert.Equal(t, 5, tb.Size())
	}
}

func TestNewTable_DynamicParametersInRange(t *testing.T) {
	for seed := int32(0); seed < 200; seed++ {
		tb, err := NewTable(BasicAlphabet, seed, true)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tb.Offset(), 1)
		assert.LessOrEqual(t, tb.Offset(), 4)
		assert.GreaterOrEqual(t, tb.Shift(), 1)
		assert.LessOrEqual(t, tb.Shift(), 4)

		again, err := NewTable(BasicAlphabet, seed, true)
		require.NoError(t, err)
		assert.Equal(t, tb.Offset(), again.Offset())
		assert.Equal(t, tb.Shift(), again.Shift())
	}
}

func TestTable_ForwardIsPermutation(t *testing.T) {
	for _, dynamic := range []bool{false, true} {
		tb, err := NewTable(BasicAlphabet, 31337, dynamic)
		require.NoError(t, err)

		for i := 0; i < 12; i++ {
			seen := make(map[byte]bool)
			for _, sym := range BasicAlphabet {
				out, ok := tb.Forward(sym, i)
				require.True(t, ok)
				assert.False(t, seen[out], "position %d maps two symbols to %q", i, out)
				seen[out] = true

				back, ok := tb.Backward(rune(out), i)
				require.True(t, ok)
				assert.Equal(t, byte(sym), back)
			}
			assert.Len(t, seen, 5)
		}
	}
}

func TestTable_ForwardFixedShift(t *testing.T) {
	tb, err := NewTable(BasicAlphabet, 0, false)
	require.NoError(t, err)

	// position i moves every symbol i places along the alphabet
	tests := []struct {
		sym  rune
		pos  int
		want byte
	}{
		{'a', 0, 'a'},
		{'b', 1, 'c'},
		{'e', 1, 'a'},
		{'a', 4, 'e'},
		{'c', 5, 'c'},
		{'d', 1_000_003, 'b'},
	}
	for _, tt := range tests {
		got, ok := tb.Forward(tt.sym, tt.pos)
		require.True(t, ok)
		assert.Equal(t, string(tt.want), string(got), "Forward(%q, %d)", tt.sym, tt.pos)
	}
}

func TestTable_UnknownSymbol(t *testing.T) {
	tb, err := NewTable(BasicAlphabet, 0, false)
	require.NoError(t, err)

	_, ok := tb.Index('z')
	assert.False(t, ok)
	_, ok = tb.Forward('☃', 0)
	assert.False(t, ok)
	_, ok = tb.Backward(-1, 0)
	assert.False(t, ok)
}
