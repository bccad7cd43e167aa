package staging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-erp/internal/pricing"
	"github.com/noah-isme/backend-erp/internal/tax"
)

type memStore struct {
	mu    sync.Mutex
	lines map[string][]Line
}

func newMemStore() *memStore {
	return &memStore{lines: map[string][]Line{}}
}

func storeKey(terminalID uuid.UUID, domain Domain) string {
	return terminalID.String() + "/" + string(domain)
}

func (m *memStore) ListLines(_ context.Context, terminalID uuid.UUID, domain Domain) ([]Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.lines[storeKey(terminalID, domain)]
	out := make([]Line, len(src))
	copy(out, src)
	return out, nil
}

func (m *memStore) InsertLine(_ context.Context, line Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(line.TerminalID, line.Domain)
	m.lines[key] = append(m.lines[key], line)
	return nil
}

func (m *memStore) UpdateLine(_ context.Context, line Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(line.TerminalID, line.Domain)
	for i, l := range m.lines[key] {
		if l.ID == line.ID {
			m.lines[key][i] = line
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) DeleteLine(_ context.Context, terminalID uuid.UUID, domain Domain, lineID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := storeKey(terminalID, domain)
	for i, l := range m.lines[key] {
		if l.ID == lineID {
			m.lines[key] = append(m.lines[key][:i], m.lines[key][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ClearLines(_ context.Context, terminalID uuid.UUID, domain Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, storeKey(terminalID, domain))
	return nil
}

// keyedLocker is an in-process stand-in for the redis lock.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: map[string]*sync.Mutex{}}
}

func (k *keyedLocker) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	defer l.Unlock()
	return fn(ctx)
}

type stubResolver struct {
	items map[uuid.UUID]ItemInfo
}

func (r *stubResolver) ResolveItem(_ context.Context, id uuid.UUID) (ItemInfo, error) {
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return ItemInfo{}, ErrInvalidLine
}

func newTestService(t *testing.T) (*Service, *stubResolver, uuid.UUID) {
	t.Helper()
	resolver := &stubResolver{items: map[uuid.UUID]ItemInfo{}}
	svc := &Service{
		Store:    newMemStore(),
		Resolver: resolver,
		Locker:   newKeyedLocker(),
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	}
	return svc, resolver, uuid.New()
}

func addItem(r *stubResolver, class tax.Class) uuid.UUID {
	id := uuid.New()
	r.items[id] = ItemInfo{ID: id, Name: "item", TaxClass: class}
	return id
}

func TestAddRoundTrip(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassRate10)

	snap, err := svc.Add(context.Background(), terminalID, DomainPurchase, AddInput{
		ItemID: itemID, Qty: 10, UnitCost: 1000, MarkupBps: 2000,
	})
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)

	line := snap.Lines[0]
	require.Equal(t, int32(1), line.Nro)
	require.Equal(t, pricing.Money(120), line.UnitPrice)
	require.Equal(t, pricing.Money(1200), line.Subtotal)
	require.Equal(t, tax.Buckets{Rate10: 1200}, line.Buckets)
	require.Equal(t, pricing.Money(1200), snap.Totals.Subtotal)
	require.Equal(t, line.Subtotal, line.Buckets.Sum())

	listed, err := svc.List(context.Background(), terminalID, DomainPurchase)
	require.NoError(t, err)
	require.Equal(t, snap, listed)
}

func TestAddValidation(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassExempt)
	ctx := context.Background()

	_, err := svc.Add(ctx, terminalID, DomainSale, AddInput{Qty: 1, UnitCost: 100})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.Add(ctx, terminalID, DomainSale, AddInput{ItemID: uuid.New(), Qty: 1, UnitCost: 100})
	require.ErrorIs(t, err, ErrInvalidLine)

	_, err = svc.Add(ctx, terminalID, DomainSale, AddInput{ItemID: itemID, Qty: 0, UnitCost: 100})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, terminalID, DomainSale, AddInput{ItemID: itemID, Qty: 5, UnitCost: 0})
	require.ErrorIs(t, err, ErrInvalidPrice)

	// nothing staged after rejected candidates
	snap, err := svc.List(ctx, terminalID, DomainSale)
	require.NoError(t, err)
	require.Empty(t, snap.Lines)
}

func TestRemoveKeepsNumbering(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassRate5)
	ctx := context.Background()

	var lineIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		snap, err := svc.Add(ctx, terminalID, DomainAdjustment, AddInput{ItemID: itemID, Qty: 1, UnitCost: 100})
		require.NoError(t, err)
		lineIDs = append(lineIDs, snap.Lines[len(snap.Lines)-1].ID)
	}

	snap, err := svc.Remove(ctx, terminalID, DomainAdjustment, lineIDs[1])
	require.NoError(t, err)
	require.Len(t, snap.Lines, 2)
	require.Equal(t, int32(1), snap.Lines[0].Nro)
	require.Equal(t, int32(3), snap.Lines[1].Nro)

	// removed numbers are not reused
	snap, err = svc.Add(ctx, terminalID, DomainAdjustment, AddInput{ItemID: itemID, Qty: 1, UnitCost: 100})
	require.NoError(t, err)
	require.Equal(t, int32(4), snap.Lines[len(snap.Lines)-1].Nro)

	sum := pricing.Money(0)
	for _, l := range snap.Lines {
		sum += l.Subtotal
	}
	require.Equal(t, sum, snap.Totals.Subtotal)
}

func TestRemoveMissingLine(t *testing.T) {
	svc, _, terminalID := newTestService(t)
	_, err := svc.Remove(context.Background(), terminalID, DomainSale, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClearIdempotent(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassRate10)
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, terminalID, DomainCollection))
	require.NoError(t, svc.Clear(ctx, terminalID, DomainCollection))

	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, terminalID, DomainCollection, AddInput{ItemID: itemID, Qty: 2, UnitCost: 500})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Clear(ctx, terminalID, DomainCollection))

	snap, err := svc.List(ctx, terminalID, DomainCollection)
	require.NoError(t, err)
	require.Empty(t, snap.Lines)
	require.Equal(t, pricing.Money(0), snap.Totals.Subtotal)
}

func TestLedgersAreIndependentPerDomain(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassExempt)
	ctx := context.Background()

	_, err := svc.Add(ctx, terminalID, DomainPurchase, AddInput{ItemID: itemID, Qty: 1, UnitCost: 100})
	require.NoError(t, err)

	snap, err := svc.List(ctx, terminalID, DomainSale)
	require.NoError(t, err)
	require.Empty(t, snap.Lines)
}

func TestReplaceCarriesManualLatch(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassRate10)
	otherItem := addItem(resolver, tax.ClassRate10)
	ctx := context.Background()

	manual := pricing.Money(999)
	snap, err := svc.Add(ctx, terminalID, DomainSale, AddInput{
		ItemID: itemID, Qty: 2, UnitCost: 1000, ManualPrice: &manual,
	})
	require.NoError(t, err)
	lineID := snap.Lines[0].ID
	require.True(t, snap.Lines[0].PriceManual)
	require.Equal(t, manual, snap.Lines[0].UnitPrice)

	// same item, changed cost and markup: latched price survives
	snap, err = svc.Replace(ctx, terminalID, DomainSale, lineID, AddInput{
		ItemID: itemID, Qty: 3, UnitCost: 5000, MarkupBps: 4000,
	})
	require.NoError(t, err)
	require.True(t, snap.Lines[0].PriceManual)
	require.Equal(t, manual, snap.Lines[0].UnitPrice)
	require.Equal(t, manual*3, snap.Lines[0].Subtotal)

	// new reference item clears the latch and rederives
	snap, err = svc.Replace(ctx, terminalID, DomainSale, lineID, AddInput{
		ItemID: otherItem, Qty: 10, UnitCost: 1000, MarkupBps: 2000,
	})
	require.NoError(t, err)
	require.False(t, snap.Lines[0].PriceManual)
	require.Equal(t, pricing.Money(120), snap.Lines[0].UnitPrice)
	require.Equal(t, int32(1), snap.Lines[0].Nro)
}

func TestConcurrentAddsDoNotCorruptTotals(t *testing.T) {
	svc, resolver, terminalID := newTestService(t)
	itemID := addItem(resolver, tax.ClassRate10)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, terminalID, DomainSale, AddInput{ItemID: itemID, Qty: 1, UnitCost: 110})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.List(ctx, terminalID, DomainSale)
	require.NoError(t, err)
	require.Len(t, snap.Lines, workers)

	sum := pricing.Money(0)
	seen := map[int32]bool{}
	for _, l := range snap.Lines {
		sum += l.Subtotal
		require.False(t, seen[l.Nro], "duplicate nro %d", l.Nro)
		seen[l.Nro] = true
	}
	require.Equal(t, sum, snap.Totals.Subtotal)
	require.Equal(t, snap.Totals.Buckets.Sum(), snap.Totals.Subtotal)
}
