// Package codec implements the store's reversible text transform.
//
// Encoding runs in two stages. Each plaintext symbol is first substituted
// through a Table: its alphabet position is moved by offset + shift*i, where i
// is the symbol's position in the text. The substituted symbols are then
// written as 8-bit values into one bit stream, which is cut into 9-bit chunks.
// Every chunk gets a marker bit of 1 inserted after its third bit and the
// resulting 10-bit value is emitted as one character. A short final chunk is
// zero-filled, and one PaddingChar is appended for every zero bit added.
//
// Because the marker is the 2^6 bit of each code unit, every emitted
// character lies in [U+0040, U+03FF] and never collides with PaddingChar or
// a line break.
//
// The transform only obscures text. It is not encryption and must not be used
// to protect anything.
package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/pkg/bitstream"
)

// Layout of the packed stream.
const (
	// SymbolBits is the width of one substituted symbol in the bit stream.
	SymbolBits = 8

	// PayloadBits is the number of stream bits carried by one code unit.
	PayloadBits = 9

	// MarkerOffset is where the marker bit goes, counted from the start of a chunk.
	MarkerOffset = PayloadBits - 6

	// UnitBits is the width of one emitted code unit, marker included.
	UnitBits = PayloadBits + 1

	// PaddingChar is appended once per zero bit used to fill the last chunk.
	PaddingChar = ' '
)

const markerBit = 1

// Options configures a Codec.
type Options struct {
	// Alphabet lists the symbols the codec accepts. Defaults to DefaultAlphabet.
	Alphabet string

	// DynamicShift derives offset and shift from the seed instead of using
	// the fixed 0 and 1.
	DynamicShift bool
}

// Codec encodes and decodes text for a fixed alphabet. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	alphabet string
	dynamic  bool
}

// New creates a Codec, validating the alphabet up front.
func New(opts Options) (*Codec, error) {
	if opts.Alphabet == "" {
		opts.Alphabet = DefaultAlphabet
	}
	if _, err := NewTable(opts.Alphabet, 0, opts.DynamicShift); err != nil {
		return nil, err
	}
	return &Codec{alphabet: opts.Alphabet, dynamic: opts.DynamicShift}, nil
}

// Alphabet returns the codec's alphabet.
func (c *Codec) Alphabet() string {
	return c.alphabet
}

// DynamicShift reports whether offset and shift are derived from the seed.
func (c *Codec) DynamicShift() bool {
	return c.dynamic
}

// Encode transforms text using seed. Every symbol of text must belong to the
// alphabet, otherwise an error matching shared.ErrInvalidSymbol is returned.
func (c *Codec) Encode(text string, seed int32) (string, error) {
	table, err := NewTable(c.alphabet, seed, c.dynamic)
	if err != nil {
		return "", err
	}

	bits := bitstream.New(utf8.RuneCountInString(text) * SymbolBits)
	i := 0
	for _, r := range text {
		sym, ok := table.Forward(r, i)
		if !ok {
			return "", invalidSymbol("Encode", r, i)
		}
		bits.AppendBits(uint64(sym), SymbolBits)
		i++
	}

	padding := PaddingCount(bits.Len())
	bits.AppendBits(0, padding)

	var out strings.Builder
	out.Grow(bits.Len()/PayloadBits*2 + padding)
	for start := 0; start < bits.Len(); start += PayloadBits {
		chunk := bits.Uint(start, PayloadBits)
		out.WriteRune(rune(bitstream.InsertBit(chunk, PayloadBits, MarkerOffset, markerBit)))
	}
	for j := 0; j < padding; j++ {
		out.WriteRune(PaddingChar)
	}

	return out.String(), nil
}

// Check returns an error matching shared.ErrInvalidSymbol for the first
// symbol of text outside the alphabet. Text that passes Check encodes under
// any seed.
func (c *Codec) Check(text string) error {
	table, err := NewTable(c.alphabet, 0, false)
	if err != nil {
		return err
	}
	i := 0
	for _, r := range text {
		if _, ok := table.Index(r); !ok {
			return invalidSymbol("Check", r, i)
		}
		i++
	}
	return nil
}

func invalidSymbol(op string, r rune, pos int) error {
	return &shared.DomainError{
		Domain:  "codec",
		Op:      op,
		Kind:    shared.ErrInvalidSymbol,
		Message: fmt.Sprintf("symbol %q at position %d is not in the alphabet", r, pos),
	}
}

// Decode reverses Encode. seed must be the one used to encode: a different
// seed is not detected and yields wrong text. Input that Encode could not
// have produced returns an error matching shared.ErrMalformedCiphertext.
func (c *Codec) Decode(text string, seed int32) (string, error) {
	table, err := NewTable(c.alphabet, seed, c.dynamic)
	if err != nil {
		return "", err
	}

	bits := bitstream.New(utf8.RuneCountInString(text) * PayloadBits)
	extraBits := 0
	pos := 0
	for _, r := range text {
		switch {
		case r == PaddingChar:
			extraBits++
		case extraBits > 0:
			return "", malformed("code unit %q at position %d follows padding", r, pos)
		case r < 0 || r >= 1<<UnitBits:
			return "", malformed("character %q at position %d is outside the %d-bit range", r, pos, UnitBits)
		default:
			payload, marker := bitstream.RemoveBit(uint64(r), UnitBits, MarkerOffset)
			if marker != markerBit {
				return "", malformed("character %q at position %d has no marker bit", r, pos)
			}
			bits.AppendBits(payload, PayloadBits)
		}
		pos++
	}

	if extraBits >= PayloadBits || extraBits > bits.Len() {
		return "", malformed("%d padding characters for %d payload bits", extraBits, bits.Len())
	}
	keep := bits.Len() - extraBits
	if extraBits > 0 && bits.Uint(keep, extraBits) != 0 {
		return "", malformed("padding bits are not zero")
	}
	bits.Truncate(keep)

	if keep%SymbolBits != 0 {
		return "", malformed("%d payload bits is not a multiple of %d", keep, SymbolBits)
	}

	var out strings.Builder
	out.Grow(keep / SymbolBits)
	for i := 0; i < keep/SymbolBits; i++ {
		code := rune(bits.Uint(i*SymbolBits, SymbolBits))
		sym, ok := table.Backward(code, i)
		if !ok {
			return "", malformed("decoded symbol %q at position %d is not in the alphabet", code, i)
		}
		out.WriteRune(rune(sym))
	}

	return out.String(), nil
}

// PaddingCount returns how many zero bits complete a stream of n bits to a
// whole number of chunks, which is also the number of padding characters.
func PaddingCount(n int) int {
	return (PayloadBits - n%PayloadBits) % PayloadBits
}

func malformed(format string, args ...any) error {
	return &shared.DomainError{
		Domain:  "codec",
		Op:      "Decode",
		Kind:    shared.ErrMalformedCiphertext,
		Message: fmt.Sprintf(format, args...),
	}
}

var defaultCodec = &Codec{alphabet: DefaultAlphabet}

// Encode transforms text with DefaultAlphabet and fixed shifts.
func Encode(text string, seed int32) (string, error) {
	return defaultCodec.Encode(text, seed)
}

// Decode reverses Encode.
func Decode(text string, seed int32) (string, error) {
	return defaultCodec.Decode(text, seed)
}
