package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-erp/internal/audit"
)

// AuditRepo persists the audit trail.
type AuditRepo struct {
	Pool *pgxpool.Pool
}

// InsertAuditLog stores one audit entry and returns it with its generated id
// and timestamp.
func (r AuditRepo) InsertAuditLog(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	const q = `
		INSERT INTO audit_logs (
			actor_kind, terminal_id, action, resource_type, resource_id,
			method, path, route, status, ip, user_agent, request_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`
	var terminalID pgtype.UUID
	if e.TerminalID != nil {
		terminalID = pgtype.UUID{Bytes: *e.TerminalID, Valid: true}
	}
	err := r.Pool.QueryRow(ctx, q,
		string(e.ActorKind), terminalID, e.Action, e.ResourceType, nullText(e.ResourceID),
		e.Method, e.Path, nullText(e.Route), e.Status,
		nullText(e.IP), nullText(e.UserAgent), nullText(e.RequestID), e.Metadata,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("insert audit log: %w", err)
	}
	return e, nil
}

// ListAuditLogs returns entries newest first.
func (r AuditRepo) ListAuditLogs(ctx context.Context, limit, offset int32) ([]audit.Entry, error) {
	const q = `
		SELECT id, actor_kind, terminal_id, action, resource_type, resource_id,
			method, path, route, status, ip, user_agent, request_id, metadata, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var terminalID pgtype.UUID
		var resourceID, route, ip, ua, requestID pgtype.Text
		err := rows.Scan(
			&e.ID, &e.ActorKind, &terminalID, &e.Action, &e.ResourceType, &resourceID,
			&e.Method, &e.Path, &route, &e.Status,
			&ip, &ua, &requestID, &e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if terminalID.Valid {
			u := uuid.UUID(terminalID.Bytes)
			e.TerminalID = &u
		}
		e.ResourceID = resourceID.String
		e.Route = route.String
		e.IP = ip.String
		e.UserAgent = ua.String
		e.RequestID = requestID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}
