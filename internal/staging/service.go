package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/lock"
	"github.com/noah-isme/backend-erp/internal/obs"
	"github.com/noah-isme/backend-erp/internal/pricing"
	"github.com/noah-isme/backend-erp/internal/tax"
)

// ErrInvalidLine is returned when the line candidate has no resolved reference item.
var ErrInvalidLine = errors.New("invalid line: reference item missing")

// ErrInvalidQuantity is returned when the quantity is not positive.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrInvalidPrice is returned when the effective unit price is not positive.
var ErrInvalidPrice = errors.New("invalid price")

// ErrNotFound indicates the staged line no longer exists.
var ErrNotFound = errors.New("staged line not found")

// Line is one staged item. Lines are replaced whole or removed; there is no
// partial field patching.
type Line struct {
	ID          uuid.UUID     `json:"id"`
	TerminalID  uuid.UUID     `json:"terminalId"`
	Domain      Domain        `json:"domain"`
	Nro         int32         `json:"nro"`
	ItemID      uuid.UUID     `json:"itemId"`
	ItemName    string        `json:"itemName"`
	Qty         int64         `json:"qty"`
	BonusQty    int64         `json:"bonusQty"`
	UnitCost    pricing.Money `json:"unitCost"`
	MarkupBps   int32         `json:"markupBps"`
	UnitPrice   pricing.Money `json:"unitPrice"`
	PriceManual bool          `json:"priceManual"`
	TaxClass    tax.Class     `json:"taxClass"`
	Buckets     tax.Buckets   `json:"taxBuckets"`
	Subtotal    pricing.Money `json:"subtotal"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Totals aggregates a ledger. Tax totals are per-class sums across lines,
// never re-derived from the grand total.
type Totals struct {
	Subtotal pricing.Money `json:"subtotal"`
	Buckets  tax.Buckets   `json:"taxBuckets"`
	Count    int           `json:"count"`
}

// Snapshot is an ordered, consistent view of one ledger.
type Snapshot struct {
	TerminalID uuid.UUID `json:"terminalId"`
	Domain     Domain    `json:"domain"`
	Lines      []Line    `json:"lines"`
	Totals     Totals    `json:"totals"`
}

// ItemInfo is the resolved reference-item view a line candidate is built from.
type ItemInfo struct {
	ID       uuid.UUID
	Name     string
	TaxClass tax.Class
	UnitCost pricing.Money
}

// ItemResolver resolves reference items for line candidates.
type ItemResolver interface {
	ResolveItem(ctx context.Context, id uuid.UUID) (ItemInfo, error)
}

// Store persists the server-held temporary line collections.
type Store interface {
	ListLines(ctx context.Context, terminalID uuid.UUID, domain Domain) ([]Line, error)
	InsertLine(ctx context.Context, line Line) error
	UpdateLine(ctx context.Context, line Line) error
	DeleteLine(ctx context.Context, terminalID uuid.UUID, domain Domain, lineID uuid.UUID) (bool, error)
	ClearLines(ctx context.Context, terminalID uuid.UUID, domain Domain) error
}

// Locker serializes mutations per ledger key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// AddInput is a line candidate. Cost is the entered batch cost; ManualPrice,
// when set, latches the price against later derived-input changes.
type AddInput struct {
	ItemID      uuid.UUID
	Qty         int64
	BonusQty    int64
	UnitCost    pricing.Money
	MarkupBps   int32
	ManualPrice *pricing.Money
}

// Service implements the staging ledger operations for all four domains.
type Service struct {
	Store    Store
	Resolver ItemResolver
	Locker   Locker
	LockTTL  time.Duration
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockTTL() time.Duration {
	if s == nil || s.LockTTL <= 0 {
		return 30 * time.Second
	}
	return s.LockTTL
}

func (s *Service) withLedgerLock(ctx context.Context, terminalID uuid.UUID, domain Domain, fn func(context.Context) error) error {
	if s.Locker == nil {
		return errors.New("staging: locker not configured")
	}
	return s.Locker.WithLock(ctx, lock.StageKey(terminalID.String(), string(domain)), s.lockTTL(), fn)
}

// buildLine validates the candidate and derives price, subtotal and tax
// buckets. It leaves Nro unset; numbering is assigned under the ledger lock.
func (s *Service) buildLine(ctx context.Context, terminalID uuid.UUID, domain Domain, in AddInput) (Line, error) {
	if in.ItemID == uuid.Nil {
		return Line{}, ErrInvalidLine
	}
	item, err := s.Resolver.ResolveItem(ctx, in.ItemID)
	if err != nil {
		if errors.Is(err, ErrInvalidLine) {
			return Line{}, ErrInvalidLine
		}
		return Line{}, fmt.Errorf("resolve item: %w", err)
	}
	if in.Qty <= 0 {
		return Line{}, fmt.Errorf("qty must be positive: %w", ErrInvalidQuantity)
	}
	if in.BonusQty < 0 {
		return Line{}, fmt.Errorf("bonus qty must not be negative: %w", ErrInvalidQuantity)
	}

	manual := in.ManualPrice != nil
	var manualPrice pricing.Money
	if manual {
		manualPrice = *in.ManualPrice
	}
	price := pricing.Resolve(manual, manualPrice, pricing.Input{
		Cost:      in.UnitCost,
		Qty:       in.Qty,
		BonusQty:  in.BonusQty,
		MarkupBps: in.MarkupBps,
	})
	if price <= 0 {
		return Line{}, fmt.Errorf("unit price must be positive: %w", ErrInvalidPrice)
	}

	subtotal := pricing.Subtotal(price, in.Qty)
	buckets, err := tax.Decompose(subtotal, item.TaxClass)
	if err != nil {
		return Line{}, fmt.Errorf("decompose subtotal: %w", err)
	}

	return Line{
		ID:          uuid.New(),
		TerminalID:  terminalID,
		Domain:      domain,
		ItemID:      item.ID,
		ItemName:    item.Name,
		Qty:         in.Qty,
		BonusQty:    in.BonusQty,
		UnitCost:    in.UnitCost,
		MarkupBps:   in.MarkupBps,
		UnitPrice:   price,
		PriceManual: manual,
		TaxClass:    item.TaxClass,
		Buckets:     buckets,
		Subtotal:    subtotal,
		CreatedAt:   s.now(),
	}, nil
}

// Add validates a line candidate, assigns the next positional number and
// appends it to the ledger. The returned snapshot reflects the ledger after
// the mutation.
func (s *Service) Add(ctx context.Context, terminalID uuid.UUID, domain Domain, in AddInput) (Snapshot, error) {
	if s == nil || s.Store == nil || s.Resolver == nil {
		return Snapshot{}, errors.New("staging service not configured")
	}
	line, err := s.buildLine(ctx, terminalID, domain, in)
	if err != nil {
		observeMutation(domain, "add", "invalid")
		return Snapshot{}, err
	}

	var snap Snapshot
	err = s.withLedgerLock(ctx, terminalID, domain, func(ctx context.Context) error {
		existing, err := s.Store.ListLines(ctx, terminalID, domain)
		if err != nil {
			return fmt.Errorf("list lines: %w", err)
		}
		line.Nro = nextNro(existing)
		if err := s.Store.InsertLine(ctx, line); err != nil {
			return fmt.Errorf("insert line: %w", err)
		}
		snap = buildSnapshot(terminalID, domain, append(existing, line))
		return nil
	})
	if err != nil {
		observeMutation(domain, "add", "error")
		return Snapshot{}, err
	}
	observeMutation(domain, "add", "ok")
	observeGauge(domain, len(snap.Lines))
	return snap, nil
}

// Replace substitutes a staged line whole, keeping its positional number.
// The manual-price latch carries over until the reference item changes:
// replacing with a new item clears it, replacing with the same item and no
// explicit price keeps the previously latched price.
func (s *Service) Replace(ctx context.Context, terminalID uuid.UUID, domain Domain, lineID uuid.UUID, in AddInput) (Snapshot, error) {
	if s == nil || s.Store == nil || s.Resolver == nil {
		return Snapshot{}, errors.New("staging service not configured")
	}
	var snap Snapshot
	err := s.withLedgerLock(ctx, terminalID, domain, func(ctx context.Context) error {
		existing, err := s.Store.ListLines(ctx, terminalID, domain)
		if err != nil {
			return fmt.Errorf("list lines: %w", err)
		}
		idx := -1
		for i, l := range existing {
			if l.ID == lineID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNotFound
		}
		prev := existing[idx]

		// carry the latch forward when the item is unchanged
		if in.ManualPrice == nil && prev.PriceManual && prev.ItemID == in.ItemID {
			carried := prev.UnitPrice
			in.ManualPrice = &carried
		}
		line, err := s.buildLine(ctx, terminalID, domain, in)
		if err != nil {
			return err
		}
		line.ID = prev.ID
		line.Nro = prev.Nro
		line.CreatedAt = prev.CreatedAt
		if err := s.Store.UpdateLine(ctx, line); err != nil {
			return fmt.Errorf("update line: %w", err)
		}
		existing[idx] = line
		snap = buildSnapshot(terminalID, domain, existing)
		return nil
	})
	if err != nil {
		observeMutation(domain, "replace", resultLabel(err))
		return Snapshot{}, err
	}
	observeMutation(domain, "replace", "ok")
	return snap, nil
}

// Remove deletes one staged line. Remaining lines keep their numbers; gaps in
// the Nro column are expected.
func (s *Service) Remove(ctx context.Context, terminalID uuid.UUID, domain Domain, lineID uuid.UUID) (Snapshot, error) {
	if s == nil || s.Store == nil {
		return Snapshot{}, errors.New("staging service not configured")
	}
	var snap Snapshot
	err := s.withLedgerLock(ctx, terminalID, domain, func(ctx context.Context) error {
		deleted, err := s.Store.DeleteLine(ctx, terminalID, domain, lineID)
		if err != nil {
			return fmt.Errorf("delete line: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		remaining, err := s.Store.ListLines(ctx, terminalID, domain)
		if err != nil {
			return fmt.Errorf("list lines: %w", err)
		}
		snap = buildSnapshot(terminalID, domain, remaining)
		return nil
	})
	if err != nil {
		observeMutation(domain, "remove", resultLabel(err))
		return Snapshot{}, err
	}
	observeMutation(domain, "remove", "ok")
	observeGauge(domain, len(snap.Lines))
	return snap, nil
}

// List returns the ordered authoritative ledger state. Reads take no lock:
// every mutation is applied atomically, so a concurrent reader sees either
// the previous or the new ledger, never a partial one.
func (s *Service) List(ctx context.Context, terminalID uuid.UUID, domain Domain) (Snapshot, error) {
	if s == nil || s.Store == nil {
		return Snapshot{}, errors.New("staging service not configured")
	}
	lines, err := s.Store.ListLines(ctx, terminalID, domain)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list lines: %w", err)
	}
	return buildSnapshot(terminalID, domain, lines), nil
}

// Clear empties the ledger. Clearing an empty ledger succeeds.
func (s *Service) Clear(ctx context.Context, terminalID uuid.UUID, domain Domain) error {
	if s == nil || s.Store == nil {
		return errors.New("staging service not configured")
	}
	err := s.withLedgerLock(ctx, terminalID, domain, func(ctx context.Context) error {
		return s.Store.ClearLines(ctx, terminalID, domain)
	})
	if err != nil {
		observeMutation(domain, "clear", "error")
		return fmt.Errorf("clear lines: %w", err)
	}
	observeMutation(domain, "clear", "ok")
	observeGauge(domain, 0)
	return nil
}

// nextNro assigns positional numbers. Numbers are never reused after a
// removal, so max+1 rather than count+1.
func nextNro(lines []Line) int32 {
	var max int32
	for _, l := range lines {
		if l.Nro > max {
			max = l.Nro
		}
	}
	return max + 1
}

func buildSnapshot(terminalID uuid.UUID, domain Domain, lines []Line) Snapshot {
	totals := Totals{}
	for _, l := range lines {
		totals.Subtotal += l.Subtotal
		totals.Buckets = totals.Buckets.Add(l.Buckets)
		totals.Count++
	}
	if lines == nil {
		lines = []Line{}
	}
	return Snapshot{TerminalID: terminalID, Domain: domain, Lines: lines, Totals: totals}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidLine), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		return "invalid"
	default:
		return "error"
	}
}

func observeMutation(domain Domain, op, result string) {
	if obs.StageMutationsTotal != nil {
		obs.StageMutationsTotal.WithLabelValues(string(domain), op, result).Inc()
	}
}

func observeGauge(domain Domain, count int) {
	if obs.StagedLines != nil {
		obs.StagedLines.WithLabelValues(string(domain)).Set(float64(count))
	}
}
