package tax

import "testing"

func TestDecomposeSingleBucket(t *testing.T) {
	b, err := Decompose(1000, ClassRate10)
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if b.Exempt != 0 || b.Rate5 != 0 || b.Rate10 != 1000 {
		t.Fatalf("unexpected buckets: %+v", b)
	}
	if b.Sum() != 1000 {
		t.Fatalf("expected sum 1000, got %d", b.Sum())
	}
}

func TestDecomposeEveryClass(t *testing.T) {
	for _, class := range []Class{ClassExempt, ClassRate5, ClassRate10} {
		b, err := Decompose(777, class)
		if err != nil {
			t.Fatalf("decompose %s: %v", class, err)
		}
		if b.Sum() != 777 {
			t.Fatalf("class %s: expected sum 777, got %d", class, b.Sum())
		}
		nonZero := 0
		for _, v := range []int64{b.Exempt, b.Rate5, b.Rate10} {
			if v != 0 {
				nonZero++
			}
		}
		if nonZero != 1 {
			t.Fatalf("class %s: expected exactly one non-zero bucket, got %+v", class, b)
		}
	}
}

func TestDecomposeUnknownClass(t *testing.T) {
	if _, err := Decompose(100, Class("rate15")); err == nil {
		t.Fatal("expected error for unknown class")
	}
}

func TestParseClass(t *testing.T) {
	c, err := ParseClass(" Rate10 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != ClassRate10 {
		t.Fatalf("expected rate10, got %s", c)
	}
	if _, err := ParseClass("vat"); err == nil {
		t.Fatal("expected error for unknown class name")
	}
}

func TestAddAccumulatesPerClass(t *testing.T) {
	total := Buckets{}
	for _, b := range []Buckets{
		{Exempt: 100},
		{Rate10: 550},
		{Rate5: 25},
		{Rate10: 450},
	} {
		total = total.Add(b)
	}
	want := Buckets{Exempt: 100, Rate5: 25, Rate10: 1000}
	if total != want {
		t.Fatalf("expected %+v, got %+v", want, total)
	}
}
