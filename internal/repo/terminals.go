package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/terminal"
)

// TerminalRepo persists the workstation identity registry.
type TerminalRepo struct {
	Pool *pgxpool.Pool
}

// GetTerminalByToken loads a terminal by its opaque token.
func (r TerminalRepo) GetTerminalByToken(ctx context.Context, token string) (terminal.Terminal, error) {
	const q = `
		SELECT id, token, enabled, bound_resources, created_at
		FROM terminals
		WHERE token = $1`
	var t terminal.Terminal
	err := r.Pool.QueryRow(ctx, q, token).Scan(&t.ID, &t.Token, &t.Enabled, &t.BoundResources, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return terminal.Terminal{}, terminal.ErrNotFound
		}
		return terminal.Terminal{}, fmt.Errorf("get terminal: %w", err)
	}
	return t, nil
}

// CreateTerminal registers a new terminal. A token collision resolves to the
// already registered row so concurrent first-boot resolves stay idempotent.
func (r TerminalRepo) CreateTerminal(ctx context.Context, t terminal.Terminal) (terminal.Terminal, error) {
	const q = `
		INSERT INTO terminals (id, token, enabled, bound_resources, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.Pool.Exec(ctx, q, t.ID, t.Token, t.Enabled, t.BoundResources, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.GetTerminalByToken(ctx, t.Token)
		}
		return terminal.Terminal{}, fmt.Errorf("create terminal: %w", err)
	}
	return t, nil
}
