package pricing

import "testing"

func TestUnitPriceAppliesMarkup(t *testing.T) {
	// 1000 total cost over 10 units is 100 per unit, plus 20% markup.
	price := UnitPrice(Input{Cost: 1000, Qty: 10, MarkupBps: 2000})
	if price != 120 {
		t.Fatalf("expected 120, got %d", price)
	}
}

func TestUnitPriceBonusIncreasesDivisor(t *testing.T) {
	price := UnitPrice(Input{Cost: 1200, Qty: 10, BonusQty: 2, MarkupBps: 0})
	if price != 100 {
		t.Fatalf("expected 100, got %d", price)
	}
}

func TestUnitPriceZeroDivisor(t *testing.T) {
	if price := UnitPrice(Input{Cost: 1000}); price != 0 {
		t.Fatalf("expected 0 for zero quantity, got %d", price)
	}
	if price := UnitPrice(Input{Cost: 1000, Qty: -3, BonusQty: 1}); price != 0 {
		t.Fatalf("expected 0 for negative divisor, got %d", price)
	}
}

func TestUnitPriceRoundsHalfUp(t *testing.T) {
	// 100/3 = 33.33 -> 33; 101/3 = 33.67 -> 34; 105/2 = 52.5 -> 53.
	cases := []struct {
		cost Money
		qty  int64
		want Money
	}{
		{100, 3, 33},
		{101, 3, 34},
		{105, 2, 53},
	}
	for _, tc := range cases {
		got := UnitPrice(Input{Cost: tc.cost, Qty: tc.qty})
		if got != tc.want {
			t.Fatalf("cost=%d qty=%d: expected %d, got %d", tc.cost, tc.qty, tc.want, got)
		}
	}
}

func TestUnitPriceMonotonicInMarkup(t *testing.T) {
	prev := Money(-1)
	for bps := int32(0); bps <= 50000; bps += 250 {
		price := UnitPrice(Input{Cost: 98765, Qty: 7, BonusQty: 3, MarkupBps: bps})
		if price < prev {
			t.Fatalf("price decreased from %d to %d at %d bps", prev, price, bps)
		}
		prev = price
	}
}

func TestUnitPriceMonotonicInCost(t *testing.T) {
	prev := Money(-1)
	for cost := Money(0); cost <= 10000; cost += 37 {
		price := UnitPrice(Input{Cost: cost, Qty: 4, BonusQty: 1, MarkupBps: 1500})
		if price < prev {
			t.Fatalf("price decreased from %d to %d at cost %d", prev, price, cost)
		}
		prev = price
	}
}

func TestResolveHonorsManualLatch(t *testing.T) {
	derived := Input{Cost: 1000, Qty: 10, MarkupBps: 2000}
	if got := Resolve(true, 777, derived); got != 777 {
		t.Fatalf("expected manual price to win, got %d", got)
	}
	if got := Resolve(false, 777, derived); got != 120 {
		t.Fatalf("expected derived price after latch cleared, got %d", got)
	}
}

func TestCompute(t *testing.T) {
	sum := Compute([]Item{
		{Qty: 2, UnitPrice: 150},
		{Qty: 1, UnitPrice: 40},
		{Qty: 0, UnitPrice: 99},
	})
	if sum.Subtotal != 340 {
		t.Fatalf("expected subtotal 340, got %d", sum.Subtotal)
	}
	if sum.Count != 2 {
		t.Fatalf("expected 2 priced lines, got %d", sum.Count)
	}
}
