package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/staging"
)

// StageRepo persists the per-(terminal, domain) staged line collections.
type StageRepo struct {
	Pool *pgxpool.Pool
}

const stageColumns = `
	id, terminal_id, domain, nro, item_id, item_name,
	qty, bonus_qty, unit_cost, markup_bps, unit_price, price_manual,
	tax_class, tax_exempt, tax_rate5, tax_rate10, subtotal, created_at`

func scanStageLine(row pgx.Row) (staging.Line, error) {
	var l staging.Line
	err := row.Scan(
		&l.ID, &l.TerminalID, &l.Domain, &l.Nro, &l.ItemID, &l.ItemName,
		&l.Qty, &l.BonusQty, &l.UnitCost, &l.MarkupBps, &l.UnitPrice, &l.PriceManual,
		&l.TaxClass, &l.Buckets.Exempt, &l.Buckets.Rate5, &l.Buckets.Rate10,
		&l.Subtotal, &l.CreatedAt,
	)
	return l, err
}

// ListLines returns the ledger in positional order.
func (r StageRepo) ListLines(ctx context.Context, terminalID uuid.UUID, domain staging.Domain) ([]staging.Line, error) {
	q := fmt.Sprintf(`SELECT %s FROM stage_lines WHERE terminal_id = $1 AND domain = $2 ORDER BY nro`, stageColumns)
	rows, err := r.Pool.Query(ctx, q, terminalID, domain)
	if err != nil {
		return nil, fmt.Errorf("list stage lines: %w", err)
	}
	defer rows.Close()

	var lines []staging.Line
	for rows.Next() {
		line, err := scanStageLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stage lines: %w", err)
	}
	return lines, nil
}

// InsertLine appends one staged line.
func (r StageRepo) InsertLine(ctx context.Context, l staging.Line) error {
	q := fmt.Sprintf(`INSERT INTO stage_lines (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`, stageColumns)
	_, err := r.Pool.Exec(ctx, q,
		l.ID, l.TerminalID, l.Domain, l.Nro, l.ItemID, l.ItemName,
		l.Qty, l.BonusQty, l.UnitCost, l.MarkupBps, l.UnitPrice, l.PriceManual,
		l.TaxClass, l.Buckets.Exempt, l.Buckets.Rate5, l.Buckets.Rate10,
		l.Subtotal, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stage line: %w", err)
	}
	return nil
}

// UpdateLine replaces one staged line whole.
func (r StageRepo) UpdateLine(ctx context.Context, l staging.Line) error {
	const q = `
		UPDATE stage_lines SET
			item_id = $4, item_name = $5, qty = $6, bonus_qty = $7,
			unit_cost = $8, markup_bps = $9, unit_price = $10, price_manual = $11,
			tax_class = $12, tax_exempt = $13, tax_rate5 = $14, tax_rate10 = $15,
			subtotal = $16
		WHERE id = $1 AND terminal_id = $2 AND domain = $3`
	tag, err := r.Pool.Exec(ctx, q,
		l.ID, l.TerminalID, l.Domain,
		l.ItemID, l.ItemName, l.Qty, l.BonusQty,
		l.UnitCost, l.MarkupBps, l.UnitPrice, l.PriceManual,
		l.TaxClass, l.Buckets.Exempt, l.Buckets.Rate5, l.Buckets.Rate10,
		l.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("update stage line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return staging.ErrNotFound
	}
	return nil
}

// DeleteLine removes one staged line; reports whether a row existed.
func (r StageRepo) DeleteLine(ctx context.Context, terminalID uuid.UUID, domain staging.Domain, lineID uuid.UUID) (bool, error) {
	const q = `DELETE FROM stage_lines WHERE terminal_id = $1 AND domain = $2 AND id = $3`
	tag, err := r.Pool.Exec(ctx, q, terminalID, domain, lineID)
	if err != nil {
		return false, fmt.Errorf("delete stage line: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearLines empties one ledger.
func (r StageRepo) ClearLines(ctx context.Context, terminalID uuid.UUID, domain staging.Domain) error {
	const q = `DELETE FROM stage_lines WHERE terminal_id = $1 AND domain = $2`
	if _, err := r.Pool.Exec(ctx, q, terminalID, domain); err != nil {
		return fmt.Errorf("clear stage lines: %w", err)
	}
	return nil
}

// DeleteStaleLines purges staged lines older than the cutoff across all
// terminals. Abandoned sessions leave ledgers behind; the sweeper calls this.
func (r StageRepo) DeleteStaleLines(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM stage_lines WHERE created_at < $1`
	tag, err := r.Pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale stage lines: %w", err)
	}
	return tag.RowsAffected(), nil
}
