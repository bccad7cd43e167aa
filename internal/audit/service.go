package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindTerminal represents a validated point-of-use terminal.
	ActorKindTerminal ActorKind = "terminal"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents requests without a terminal token.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind       ActorKind
	TerminalID *uuid.UUID
}

// Entry is one persisted audit record.
type Entry struct {
	ID           uuid.UUID       `json:"id"`
	ActorKind    ActorKind       `json:"actorKind"`
	TerminalID   *uuid.UUID      `json:"terminalId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        string          `json:"route,omitempty"`
	Status       int32           `json:"status"`
	IP           string          `json:"ip,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Store defines the database operations required for auditing.
type Store interface {
	InsertAuditLog(ctx context.Context, entry Entry) (Entry, error)
	ListAuditLogs(ctx context.Context, limit, offset int32) ([]Entry, error)
}

// Service persists audit logs for staging and commit flows.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists an audit log entry when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 {
		if rand.Float64() > s.SamplingRate {
			return nil
		}
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	method := req.Method
	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}

	finalStatus := status
	if finalStatus == 0 {
		finalStatus = http.StatusOK
	}

	_, err := s.Store.InsertAuditLog(ctx, Entry{
		ActorKind:    normalizeActorKind(actor.Kind),
		TerminalID:   actor.TerminalID,
		Action:       buildAction(action, method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       method,
		Path:         req.URL.Path,
		Route:        route,
		Status:       int32(finalStatus),
		IP:           common.ClientIP(req),
		UserAgent:    strings.TrimSpace(req.Header.Get("User-Agent")),
		RequestID:    strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:     toJSONB(metadata, req.URL.RawQuery),
	})
	return err
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	base := strings.ToUpper(strings.TrimSpace(method))
	target := route
	if target == "" {
		target = "/"
	}
	return base + " " + target
}

func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.Trim(route, " ")
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindTerminal, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func toJSONB(metadata []byte, query string) []byte {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	payload := map[string]string{"query": query}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
