package tax

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-erp/internal/pricing"
)

// Class identifies the tax category configured on a reference item. A line is
// entirely exempt or entirely taxed at one rate; mixed lines do not exist.
type Class string

const (
	// ClassExempt marks items outside the tax regime.
	ClassExempt Class = "exempt"
	// ClassRate5 marks items taxed at the reduced 5% rate.
	ClassRate5 Class = "rate5"
	// ClassRate10 marks items taxed at the standard 10% rate.
	ClassRate10 Class = "rate10"
)

// ParseClass validates a stored or user supplied tax class.
func ParseClass(value string) (Class, error) {
	switch Class(strings.ToLower(strings.TrimSpace(value))) {
	case ClassExempt:
		return ClassExempt, nil
	case ClassRate5:
		return ClassRate5, nil
	case ClassRate10:
		return ClassRate10, nil
	}
	return "", fmt.Errorf("unknown tax class %q", value)
}

// Valid reports whether the class is a member of the closed enumeration.
func (c Class) Valid() bool {
	switch c {
	case ClassExempt, ClassRate5, ClassRate10:
		return true
	}
	return false
}

// Buckets holds a subtotal decomposed into the three tax categories. The sum
// of the buckets always equals the decomposed subtotal exactly.
type Buckets struct {
	Exempt pricing.Money `json:"exempt"`
	Rate5  pricing.Money `json:"rate5"`
	Rate10 pricing.Money `json:"rate10"`
}

// Decompose splits a line subtotal into tax buckets. Exactly one bucket is
// non-zero for a non-zero subtotal.
func Decompose(subtotal pricing.Money, class Class) (Buckets, error) {
	var b Buckets
	switch class {
	case ClassExempt:
		b.Exempt = subtotal
	case ClassRate5:
		b.Rate5 = subtotal
	case ClassRate10:
		b.Rate10 = subtotal
	default:
		return Buckets{}, fmt.Errorf("unknown tax class %q", class)
	}
	return b, nil
}

// Sum returns the total across all buckets.
func (b Buckets) Sum() pricing.Money {
	return b.Exempt + b.Rate5 + b.Rate10
}

// Add accumulates another set of buckets per class. Ledger aggregates are
// built this way, never re-derived from the grand total, so per-class sums
// cannot drift from the lines they came from.
func (b Buckets) Add(o Buckets) Buckets {
	return Buckets{
		Exempt: b.Exempt + o.Exempt,
		Rate5:  b.Rate5 + o.Rate5,
		Rate10: b.Rate10 + o.Rate10,
	}
}
