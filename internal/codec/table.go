package codec

import (
	"fmt"
	"math/rand/v2"

	"github.com/coursework/storehub/internal/domain/shared"
)

const (
	// BasicAlphabet is the five-symbol alphabet the store originally shipped with.
	BasicAlphabet = "abcde"

	// DefaultAlphabet covers printable ASCII plus tab and newline, which is
	// everything the inventory record format produces.
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789" +
		" !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~" +
		"\t\n"
)

// Fixed parameters used unless dynamic shifting is enabled.
const (
	fixedOffset = 0
	fixedShift  = 1
)

const noIndex = -1

// Table maps alphabet symbols to positions and back, and carries the
// per-seed offset and shift applied at each position.
// A Table is immutable once built.
type Table struct {
	index   [256]int // symbol code point -> alphabet position, noIndex if absent
	symbols []byte   // alphabet position -> symbol code point
	offset  int
	shift   int
}

// NewTable validates alphabet and derives offset and shift from seed.
//
// Both parameters are always drawn from the seeded generator, uniformly over
// [1, len(alphabet)-1], offset first. Unless dynamic is set they are then
// replaced by offset 0 and shift 1.
func NewTable(alphabet string, seed int32, dynamic bool) (*Table, error) {
	t := &Table{symbols: make([]byte, 0, len(alphabet))}
	for i := range t.index {
		t.index[i] = noIndex
	}

	for _, r := range alphabet {
		if r >= 1<<SymbolBits {
			return nil, &shared.DomainError{
				Domain:  "codec",
				Op:      "NewTable",
				Kind:    shared.ErrInvalidAlphabet,
				Message: fmt.Sprintf("symbol %q does not fit in %d bits", r, SymbolBits),
			}
		}
		if t.index[r] != noIndex {
			return nil, &shared.DomainError{
				Domain:  "codec",
				Op:      "NewTable",
				Kind:    shared.ErrInvalidAlphabet,
				Message: fmt.Sprintf("alphabet contains duplicates: %q", r),
			}
		}
		t.index[r] = len(t.symbols)
		t.symbols = append(t.symbols, byte(r))
	}

	size := len(t.symbols)
	if size < 2 {
		return nil, &shared.DomainError{
			Domain:  "codec",
			Op:      "NewTable",
			Kind:    shared.ErrInvalidAlphabet,
			Message: fmt.Sprintf("alphabet needs at least 2 symbols, have %d", size),
		}
	}

	rng := rand.New(rand.NewPCG(uint64(uint32(seed)), 0))
	t.offset = rng.IntN(size-1) + 1
	t.shift = rng.IntN(size-1) + 1 // 0 or size would leave every symbol in place
	if !dynamic {
		t.offset = fixedOffset
		t.shift = fixedShift
	}

	return t, nil
}

// Size returns the number of symbols in the alphabet.
func (t *Table) Size() int {
	return len(t.symbols)
}

// Offset returns the constant part of the per-position shift.
func (t *Table) Offset() int {
	return t.offset
}

// Shift returns the per-position increment of the shift.
func (t *Table) Shift() int {
	return t.shift
}

// Index returns the alphabet position of sym.
func (t *Table) Index(sym rune) (int, bool) {
	if sym < 0 || sym >= 1<<SymbolBits {
		return 0, false
	}
	idx := t.index[sym]
	return idx, idx != noIndex
}

// Forward substitutes the symbol found at position i of the plaintext.
func (t *Table) Forward(sym rune, i int) (byte, bool) {
	idx, ok := t.Index(sym)
	if !ok {
		return 0, false
	}
	return t.symbols[t.mod(idx+t.displacement(i))], true
}

// Backward undoes Forward for the symbol found at position i.
func (t *Table) Backward(sym rune, i int) (byte, bool) {
	idx, ok := t.Index(sym)
	if !ok {
		return 0, false
	}
	return t.symbols[t.mod(idx-t.displacement(i))], true
}

// displacement is offset + shift*i reduced modulo the alphabet size so that
// long inputs cannot overflow.
func (t *Table) displacement(i int) int {
	size := len(t.symbols)
	return t.mod(t.offset%size + (t.shift%size)*(i%size))
}

func (t *Table) mod(v int) int {
	size := len(t.symbols)
	v %= size
	if v < 0 {
		v += size
	}
	return v
}
