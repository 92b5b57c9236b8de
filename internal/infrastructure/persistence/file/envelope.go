// Package file implements the two-line text file the store is saved to.
//
// Layout:
//
//	Yes
//	<6-digit seed><encoded payload>
//
// or, when the payload is stored as plain text:
//
//	No
//	<plain payload, possibly spanning several lines>
package file

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coursework/storehub/internal/domain/shared"
)

const (
	// FlagEncoded marks an encoded payload.
	FlagEncoded = "Yes"

	// FlagPlain marks a plain-text payload.
	FlagPlain = "No"

	// SeedDigits is the fixed width of the seed prefix.
	SeedDigits = 6

	// MaxSeed is the largest seed that fits in SeedDigits digits.
	MaxSeed = 999999
)

// Envelope is the decoded form of a saved file.
type Envelope struct {
	Encoded bool
	Seed    int32  // meaningful only when Encoded
	Payload string // encoded text when Encoded, plain text otherwise
}

// NewSeed derives a fresh seed from the clock.
func NewSeed(now time.Time) int32 {
	return int32(now.UnixMilli() % (MaxSeed + 1))
}

// Marshal renders the envelope. No trailing newline is written.
func (e Envelope) Marshal() ([]byte, error) {
	var sb strings.Builder
	if !e.Encoded {
		sb.Grow(len(FlagPlain) + 1 + len(e.Payload))
		sb.WriteString(FlagPlain)
		sb.WriteByte('\n')
		sb.WriteString(e.Payload)
		return []byte(sb.String()), nil
	}

	if e.Seed < 0 || e.Seed > MaxSeed {
		return nil, &shared.DomainError{
			Domain:  "envelope",
			Op:      "Marshal",
			Kind:    shared.ErrInvalidSeed,
			Message: fmt.Sprintf("seed %d does not fit in %d digits", e.Seed, SeedDigits),
		}
	}
	if strings.ContainsAny(e.Payload, "\r\n") {
		return nil, &shared.DomainError{
			Domain:  "envelope",
			Op:      "Marshal",
			Kind:    shared.ErrMalformedEnvelope,
			Message: "encoded payload must fit on one line",
		}
	}

	sb.Grow(len(FlagEncoded) + 1 + SeedDigits + len(e.Payload))
	sb.WriteString(FlagEncoded)
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%0*d", SeedDigits, e.Seed)
	sb.WriteString(e.Payload)
	return []byte(sb.String()), nil
}

// Unmarshal parses a saved file.
func Unmarshal(data []byte) (Envelope, error) {
	text := string(data)
	flag, rest, found := strings.Cut(text, "\n")
	flag = strings.TrimSuffix(flag, "\r")

	switch flag {
	case FlagPlain:
		return Envelope{Payload: rest}, nil
	case FlagEncoded:
	default:
		return Envelope{}, malformedEnvelope("unknown flag line %q", flag)
	}

	if !found {
		return Envelope{}, malformedEnvelope("missing payload line")
	}
	line, _, _ := strings.Cut(rest, "\n")
	line = strings.TrimSuffix(line, "\r")

	if len(line) < SeedDigits {
		return Envelope{}, malformedEnvelope("payload line shorter than the %d-digit seed", SeedDigits)
	}
	digits := line[:SeedDigits]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Envelope{}, malformedEnvelope("seed %q is not %d decimal digits", digits, SeedDigits)
		}
	}
	seed, err := strconv.Atoi(digits)
	if err != nil {
		return Envelope{}, malformedEnvelope("seed %q: %v", digits, err)
	}

	return Envelope{
		Encoded: true,
		Seed:    int32(seed),
		Payload: line[SeedDigits:],
	}, nil
}

func malformedEnvelope(format string, args ...any) error {
	return &shared.DomainError{
		Domain:  "envelope",
		Op:      "Unmarshal",
		Kind:    shared.ErrMalformedEnvelope,
		Message: fmt.Sprintf(format, args...),
	}
}
