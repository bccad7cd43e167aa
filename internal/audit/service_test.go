package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/obs"
)

type stubStore struct {
	lastInsert Entry
	called     bool
}

func (s *stubStore) InsertAuditLog(_ context.Context, entry Entry) (Entry, error) {
	s.called = true
	s.lastInsert = entry
	return entry, nil
}

func (s *stubStore) ListAuditLogs(context.Context, int32, int32) ([]Entry, error) {
	return nil, nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}
	terminalID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "https://api.test/api/v1/stage/sale/lines?dry=false", nil)
	req.Header.Set("User-Agent", "tester")
	req.Header.Set("X-Request-ID", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/stage/{domain}/lines"))

	if err := svc.Record(req.Context(), Actor{Kind: ActorKindTerminal, TerminalID: &terminalID}, "", "", "", req, http.StatusCreated, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be called")
	}
	if store.lastInsert.ActorKind != ActorKindTerminal {
		t.Fatalf("unexpected actor kind: %s", store.lastInsert.ActorKind)
	}
	if store.lastInsert.TerminalID == nil || *store.lastInsert.TerminalID != terminalID {
		t.Fatalf("unexpected stored terminal id: %v", store.lastInsert.TerminalID)
	}
	if store.lastInsert.Action != "POST /api/v1/stage/{domain}/lines" {
		t.Fatalf("unexpected action: %s", store.lastInsert.Action)
	}
	if store.lastInsert.ResourceType != "stage.{domain}.lines" {
		t.Fatalf("unexpected resource type: %s", store.lastInsert.ResourceType)
	}
	if store.lastInsert.IP != "10.0.0.2" {
		t.Fatalf("expected ip capture, got %q", store.lastInsert.IP)
	}
	if store.lastInsert.RequestID != "req-123" {
		t.Fatalf("expected request id, got %q", store.lastInsert.RequestID)
	}
	if store.lastInsert.Status != http.StatusCreated {
		t.Fatalf("unexpected status: %d", store.lastInsert.Status)
	}
	if len(store.lastInsert.Metadata) == 0 {
		t.Fatal("expected metadata to be set")
	}
	var meta map[string]string
	if err := json.Unmarshal(store.lastInsert.Metadata, &meta); err != nil {
		t.Fatalf("metadata json: %v", err)
	}
	if meta["query"] != "dry=false" {
		t.Fatalf("unexpected metadata query: %s", meta["query"])
	}
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if err := svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.called {
		t.Fatal("expected no insert when disabled")
	}
}

func TestServiceRecordAnonymousFallback(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/stage/sale", nil)

	if err := svc.Record(req.Context(), Actor{Kind: "robot"}, "", "", "", req, 0, nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.lastInsert.ActorKind != ActorKindAnonymous {
		t.Fatalf("unexpected actor kind: %s", store.lastInsert.ActorKind)
	}
	if store.lastInsert.Status != http.StatusOK {
		t.Fatalf("expected zero status to default to 200, got %d", store.lastInsert.Status)
	}
	if store.lastInsert.ResourceType != "stage.sale" {
		t.Fatalf("unexpected resource type: %s", store.lastInsert.ResourceType)
	}
}
