package pricing

// Money represents a monetary value stored in whole currency units.
type Money = int64

// BpsDenominator is the basis-point scale used for markup percentages.
// A markup of 20% is expressed as 2000 bps.
const BpsDenominator = 10000

// Input carries the entered fields a unit price is derived from. Cost is the
// total cost of the purchased batch, not a per-unit figure; the bonus quantity
// increases the divisor without increasing cost.
type Input struct {
	Cost      Money
	Qty       int64
	BonusQty  int64
	MarkupBps int32
}

// UnitPrice derives a selling price from the entered cost, quantities and
// markup. The per-unit cost is cost/(qty+bonus); the markup is applied on top
// and the result is rounded half-up to the smallest currency unit. Degenerate
// inputs (zero divisor, negative cost) yield zero rather than an error so
// callers can treat the result as "no price yet".
func UnitPrice(in Input) Money {
	divisor := in.Qty + in.BonusQty
	if divisor <= 0 {
		return 0
	}
	if in.Cost < 0 {
		return 0
	}
	markup := int64(in.MarkupBps)
	if markup < 0 {
		markup = 0
	}
	num := in.Cost * (BpsDenominator + markup)
	den := divisor * BpsDenominator
	return (num + den/2) / den
}

// Resolve returns the effective unit price for a line. A manually set price
// latches: derived inputs are ignored until the override is cleared.
func Resolve(manual bool, manualPrice Money, in Input) Money {
	if manual {
		return manualPrice
	}
	return UnitPrice(in)
}

// Subtotal computes a line subtotal from its unit price and quantity. The
// bonus quantity is delivered free of charge and never enters the subtotal.
func Subtotal(unitPrice Money, qty int64) Money {
	if qty <= 0 || unitPrice <= 0 {
		return 0
	}
	return unitPrice * qty
}

// Item describes a staged line used for aggregate calculation.
type Item struct {
	Qty       int64
	UnitPrice Money
}

// Summary aggregates computed totals across staged lines.
type Summary struct {
	Subtotal Money
	Count    int
}

// Compute calculates ledger totals given the provided lines.
func Compute(items []Item) Summary {
	var s Summary
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		s.Subtotal += Money(it.Qty) * it.UnitPrice
		s.Count++
	}
	return s
}
