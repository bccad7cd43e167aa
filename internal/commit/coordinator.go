package commit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/events"
	"github.com/noah-isme/backend-erp/internal/lock"
	"github.com/noah-isme/backend-erp/internal/obs"
	"github.com/noah-isme/backend-erp/internal/pricing"
	"github.com/noah-isme/backend-erp/internal/staging"
	"github.com/noah-isme/backend-erp/internal/tax"
)

// ErrCommitFailed wraps persistence failures during commit. The staged ledger
// is left untouched so the caller can retry.
var ErrCommitFailed = errors.New("commit failed")

// ErrTransactionNotFound indicates an unknown committed transaction id.
var ErrTransactionNotFound = errors.New("transaction not found")

// ValidationError reports the first failed commit precondition.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("commit validation: %s is required", e.Field)
}

// Header carries the commit metadata entered at the terminal.
type Header struct {
	CounterpartID uuid.UUID
	IssuedAt      time.Time
	DocumentRef   string
	Notes         string
}

// Item is the immutable snapshot of one staged line at commit time.
type Item struct {
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
}

// Transaction is a committed ledger. Never mutated after creation; corrections
// are new transactions.
type Transaction struct {
	ID            uuid.UUID      `json:"id"`
	TerminalID    uuid.UUID      `json:"terminalId"`
	Domain        staging.Domain `json:"domain"`
	CounterpartID uuid.UUID      `json:"counterpartId"`
	DocumentRef   string         `json:"documentRef,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	IssuedAt      time.Time      `json:"issuedAt"`
	Total         pricing.Money  `json:"total"`
	Buckets       tax.Buckets    `json:"taxBuckets"`
	Enabled       bool           `json:"enabled"`
	CommittedAt   time.Time      `json:"committedAt"`
	Items         []Item         `json:"items"`
}

// Store persists committed transactions. SaveTransaction must insert the
// transaction and clear the source ledger in one database transaction.
type Store interface {
	SaveTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)
}

// Coordinator turns a staged ledger into a committed transaction.
type Coordinator struct {
	Stage   staging.Store
	Locker  staging.Locker
	Store   Store
	Events  *events.Bus
	LockTTL time.Duration
	Now     func() time.Time
}

func (c *Coordinator) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Coordinator) lockTTL() time.Duration {
	if c == nil || c.LockTTL <= 0 {
		return 30 * time.Second
	}
	return c.LockTTL
}

// Commit validates the header against the staged ledger and atomically
// persists the snapshot, clearing the ledger. Preconditions are checked in
// order and the first failure wins. The coordinator does not deduplicate
// retried commits; idempotency belongs to the caller.
func (c *Coordinator) Commit(ctx context.Context, terminalID uuid.UUID, domain staging.Domain, header Header) (Transaction, error) {
	if c == nil || c.Stage == nil || c.Store == nil || c.Locker == nil {
		return Transaction{}, errors.New("commit coordinator not configured")
	}
	start := time.Now()

	if header.CounterpartID == uuid.Nil {
		observeCommit(domain, "invalid", start)
		return Transaction{}, ValidationError{Field: "counterpartId"}
	}

	var txn Transaction
	err := c.Locker.WithLock(ctx, lock.StageKey(terminalID.String(), string(domain)), c.lockTTL(), func(ctx context.Context) error {
		lines, err := c.Stage.ListLines(ctx, terminalID, domain)
		if err != nil {
			return fmt.Errorf("list staged lines: %w", err)
		}
		if len(lines) == 0 {
			return ValidationError{Field: "lines"}
		}
		if domain.RequiresDocumentRef() && strings.TrimSpace(header.DocumentRef) == "" {
			return ValidationError{Field: "documentRef"}
		}

		txn = c.buildTransaction(terminalID, domain, header, lines)
		if err := c.Store.SaveTransaction(ctx, txn); err != nil {
			return fmt.Errorf("%w: %v", ErrCommitFailed, err)
		}
		return nil
	})
	if err != nil {
		observeCommit(domain, resultLabel(err), start)
		return Transaction{}, err
	}

	observeCommit(domain, "ok", start)
	c.emit(ctx, txn)
	return txn, nil
}

// Get fetches a committed transaction by id.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (Transaction, error) {
	if c == nil || c.Store == nil {
		return Transaction{}, errors.New("commit coordinator not configured")
	}
	return c.Store.GetTransaction(ctx, id)
}

func (c *Coordinator) buildTransaction(terminalID uuid.UUID, domain staging.Domain, header Header, lines []staging.Line) Transaction {
	now := c.now()
	issuedAt := header.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}

	items := make([]Item, 0, len(lines))
	var total pricing.Money
	var buckets tax.Buckets
	for _, l := range lines {
		items = append(items, Item{
			Nro:         l.Nro,
			ItemID:      l.ItemID,
			ItemName:    l.ItemName,
			Qty:         l.Qty,
			BonusQty:    l.BonusQty,
			UnitCost:    l.UnitCost,
			MarkupBps:   l.MarkupBps,
			UnitPrice:   l.UnitPrice,
			PriceManual: l.PriceManual,
			TaxClass:    l.TaxClass,
			Buckets:     l.Buckets,
			Subtotal:    l.Subtotal,
		})
		total += l.Subtotal
		buckets = buckets.Add(l.Buckets)
	}

	return Transaction{
		ID:            uuid.New(),
		TerminalID:    terminalID,
		Domain:        domain,
		CounterpartID: header.CounterpartID,
		DocumentRef:   strings.TrimSpace(header.DocumentRef),
		Notes:         strings.TrimSpace(header.Notes),
		IssuedAt:      issuedAt,
		Total:         total,
		Buckets:       buckets,
		Enabled:       true,
		CommittedAt:   now,
		Items:         items,
	}
}

func (c *Coordinator) emit(ctx context.Context, txn Transaction) {
	if c.Events == nil {
		return
	}
	// event persistence failure never undoes a committed transaction
	_, _ = c.Events.Emit(ctx, events.TopicTransactionCommitted, txn.ID, map[string]any{
		"terminalId": txn.TerminalID,
		"domain":     txn.Domain,
		"total":      txn.Total,
		"lineCount":  len(txn.Items),
	})
	_, _ = c.Events.Emit(ctx, events.TopicStageCleared, txn.TerminalID, map[string]any{
		"domain": txn.Domain,
		"reason": "commit",
	})
}

func resultLabel(err error) string {
	var v ValidationError
	switch {
	case errors.As(err, &v):
		return "invalid"
	case errors.Is(err, ErrCommitFailed):
		return "failed"
	default:
		return "error"
	}
}

func observeCommit(domain staging.Domain, result string, start time.Time) {
	if obs.CommitTotal != nil {
		obs.CommitTotal.WithLabelValues(string(domain), result).Inc()
	}
	if result == "ok" && obs.CommitDuration != nil {
		obs.CommitDuration.WithLabelValues(string(domain)).Observe(obs.DurationMillis(time.Since(start)))
	}
}
