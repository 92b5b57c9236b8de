// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ItemID is the store's code for an item. It is free text chosen by the
// operator, so it only has to fit on one line of the inventory file.
type ItemID string

// IsValid checks that the ID is non-empty and holds no field separators.
func (i ItemID) IsValid() bool {
	s := string(i)
	return s != "" && len(s) <= 64 && !strings.ContainsAny(s, "\t\r\n")
}

// String returns the string representation.
func (i ItemID) String() string {
	return string(i)
}

// NewItemID creates a new ItemID with validation.
func NewItemID(id string) (ItemID, error) {
	iid := ItemID(strings.TrimSpace(id))
	if !iid.IsValid() {
		return "", NewDomainError("shared", "NewItemID", ErrInvalidID, "item ID must be 1-64 characters on a single line")
	}
	return iid, nil
}

// StudentNumber is the school-issued student number.
type StudentNumber string

var studentNumberRegex = regexp.MustCompile(`^[A-Za-z0-9-]{1,20}$`)

// IsValid checks the student number format.
func (n StudentNumber) IsValid() bool {
	return studentNumberRegex.MatchString(string(n))
}

// String returns the string representation.
func (n StudentNumber) String() string {
	return string(n)
}

// NewStudentNumber creates a new StudentNumber with validation.
func NewStudentNumber(number string) (StudentNumber, error) {
	sn := StudentNumber(strings.TrimSpace(number))
	if !sn.IsValid() {
		return "", NewDomainError("shared", "NewStudentNumber", ErrInvalidID, "student number must be 1-20 letters, digits or dashes")
	}
	return sn, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Money Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Money is a pre-tax amount in dollars.
type Money float64

// IsValid checks that the amount is a finite, non-negative number.
func (m Money) IsValid() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// Float64 returns the underlying value.
func (m Money) Float64() float64 {
	return float64(m)
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Times returns the amount for n units.
func (m Money) Times(n int) Money {
	return m * Money(n)
}

// String formats the amount for display, e.g. "$12.50".
func (m Money) String() string {
	return "$" + strconv.FormatFloat(float64(m), 'f', 2, 64)
}

// NewMoney creates a new Money with validation.
func NewMoney(amount float64) (Money, error) {
	m := Money(amount)
	if !m.IsValid() {
		return 0, NewDomainError("shared", "NewMoney", ErrNegativeValue, "amount must be a non-negative number")
	}
	return m, nil
}

// ParseMoney parses an amount written without the currency sign.
func ParseMoney(s string) (Money, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, WrapError("shared", "ParseMoney", ErrInvalidFormat, "amount is not a number", err)
	}
	return NewMoney(f)
}

// FormatPlain renders the amount without the currency sign and without
// losing precision, for storage.
func (m Money) FormatPlain() string {
	return strconv.FormatFloat(float64(m), 'f', -1, 64)
}
