package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type listStore struct {
	stubStore
	receivedLimit  int32
	receivedOffset int32
}

func (l *listStore) ListAuditLogs(_ context.Context, limit, offset int32) ([]Entry, error) {
	l.receivedLimit = limit
	l.receivedOffset = offset
	return []Entry{{Action: "TEST", Method: "GET"}}, nil
}

func TestHandlerList(t *testing.T) {
	store := &listStore{}
	h := Handler{Store: store, PageSize: 50}
	req := httptest.NewRequest(http.MethodGet, "/audit?limit=25&page=3", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.receivedLimit != 25 || store.receivedOffset != 50 {
		t.Fatalf("unexpected pagination params: %d/%d", store.receivedLimit, store.receivedOffset)
	}
	var payload struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected one log entry, got %d", len(payload.Data))
	}
}

func TestHandlerListUnconfigured(t *testing.T) {
	h := Handler{}
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
