package commit

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/staging"
	"github.com/noah-isme/backend-erp/internal/terminal"
)

// Handler exposes commit and transaction lookup over HTTP.
type Handler struct {
	Coord    *Coordinator
	Validate *validator.Validate
}

// NewHandler constructs a commit handler with its payload validator.
func NewHandler(coord *Coordinator) *Handler {
	return &Handler{Coord: coord, Validate: validator.New()}
}

type commitRequest struct {
	CounterpartID string `json:"counterpartId" validate:"required,uuid"`
	IssuedAt      string `json:"issuedAt" validate:"omitempty"`
	DocumentRef   string `json:"documentRef" validate:"omitempty,max=64"`
	Notes         string `json:"notes" validate:"omitempty,max=500"`
}

// Commit converts the caller's staged ledger into a committed transaction.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	t, ok := terminal.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "NOT_ENABLED", "terminal is not enabled for staging operations", nil)
		return
	}
	domain, err := staging.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown staging domain", nil)
		return
	}

	var payload commitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
		return
	}
	counterpartID, err := uuid.Parse(payload.CounterpartID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid counterpart id", nil)
		return
	}
	var issuedAt time.Time
	if payload.IssuedAt != "" {
		issuedAt, err = time.Parse(time.RFC3339, payload.IssuedAt)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "issuedAt must be RFC3339", nil)
			return
		}
	}

	txn, err := h.Coord.Commit(r.Context(), t.ID, domain, Header{
		CounterpartID: counterpartID,
		IssuedAt:      issuedAt,
		DocumentRef:   payload.DocumentRef,
		Notes:         payload.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": txn})
}

// GetTransaction fetches one committed transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction id", nil)
		return
	}
	txn, err := h.Coord.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load transaction", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": txn})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var v ValidationError
	switch {
	case errors.As(err, &v):
		common.JSONAppError(w, common.NewValidationError(v.Field, v.Error()))
	case errors.Is(err, ErrCommitFailed):
		common.JSONError(w, http.StatusConflict, "COMMIT_FAILED", "commit could not be persisted, staged lines are preserved", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commit failed", nil)
	}
}
