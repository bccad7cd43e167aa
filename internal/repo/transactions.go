package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/commit"
)

// TransactionRepo persists committed transactions.
type TransactionRepo struct {
	Pool *pgxpool.Pool
}

// SaveTransaction inserts the transaction header with its item snapshot and
// clears the source ledger inside one database transaction. Either everything
// lands or the staged lines stay untouched.
func (r TransactionRepo) SaveTransaction(ctx context.Context, txn commit.Transaction) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertHeader = `
		INSERT INTO transactions (
			id, terminal_id, domain, counterpart_id, document_ref, notes,
			issued_at, total, tax_exempt, tax_rate5, tax_rate10, enabled, committed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = tx.Exec(ctx, insertHeader,
		txn.ID, txn.TerminalID, txn.Domain, txn.CounterpartID,
		nullText(txn.DocumentRef), nullText(txn.Notes),
		txn.IssuedAt, txn.Total,
		txn.Buckets.Exempt, txn.Buckets.Rate5, txn.Buckets.Rate10,
		txn.Enabled, txn.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	const insertItem = `
		INSERT INTO transaction_items (
			transaction_id, nro, item_id, item_name, qty, bonus_qty,
			unit_cost, markup_bps, unit_price, price_manual, tax_class,
			tax_exempt, tax_rate5, tax_rate10, subtotal
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	batch := &pgx.Batch{}
	for _, item := range txn.Items {
		batch.Queue(insertItem,
			txn.ID, item.Nro, item.ItemID, item.ItemName, item.Qty, item.BonusQty,
			item.UnitCost, item.MarkupBps, item.UnitPrice, item.PriceManual, item.TaxClass,
			item.Buckets.Exempt, item.Buckets.Rate5, item.Buckets.Rate10, item.Subtotal,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert transaction items: %w", err)
	}

	const clearStage = `DELETE FROM stage_lines WHERE terminal_id = $1 AND domain = $2`
	if _, err := tx.Exec(ctx, clearStage, txn.TerminalID, txn.Domain); err != nil {
		return fmt.Errorf("clear stage lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetTransaction loads a committed transaction with its item snapshot.
func (r TransactionRepo) GetTransaction(ctx context.Context, id uuid.UUID) (commit.Transaction, error) {
	const header = `
		SELECT id, terminal_id, domain, counterpart_id, document_ref, notes,
			issued_at, total, tax_exempt, tax_rate5, tax_rate10, enabled, committed_at
		FROM transactions
		WHERE id = $1`
	var txn commit.Transaction
	var docRef, notes pgtype.Text
	err := r.Pool.QueryRow(ctx, header, id).Scan(
		&txn.ID, &txn.TerminalID, &txn.Domain, &txn.CounterpartID, &docRef, &notes,
		&txn.IssuedAt, &txn.Total,
		&txn.Buckets.Exempt, &txn.Buckets.Rate5, &txn.Buckets.Rate10,
		&txn.Enabled, &txn.CommittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return commit.Transaction{}, commit.ErrTransactionNotFound
		}
		return commit.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	txn.DocumentRef = docRef.String
	txn.Notes = notes.String

	const items = `
		SELECT nro, item_id, item_name, qty, bonus_qty,
			unit_cost, markup_bps, unit_price, price_manual, tax_class,
			tax_exempt, tax_rate5, tax_rate10, subtotal
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY nro`
	rows, err := r.Pool.Query(ctx, items, id)
	if err != nil {
		return commit.Transaction{}, fmt.Errorf("list transaction items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item commit.Item
		err := rows.Scan(
			&item.Nro, &item.ItemID, &item.ItemName, &item.Qty, &item.BonusQty,
			&item.UnitCost, &item.MarkupBps, &item.UnitPrice, &item.PriceManual, &item.TaxClass,
			&item.Buckets.Exempt, &item.Buckets.Rate5, &item.Buckets.Rate10, &item.Subtotal,
		)
		if err != nil {
			return commit.Transaction{}, fmt.Errorf("scan transaction item: %w", err)
		}
		txn.Items = append(txn.Items, item)
	}
	if err := rows.Err(); err != nil {
		return commit.Transaction{}, fmt.Errorf("list transaction items: %w", err)
	}
	return txn, nil
}

func nullText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
