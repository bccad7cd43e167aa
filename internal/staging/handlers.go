package staging

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/pricing"
	"github.com/noah-isme/backend-erp/internal/terminal"
)

// Handler wires the staging ledger to HTTP. Routes are mounted under
// /stage/{domain} behind the terminal gate middleware.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler constructs a staging handler with its payload validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

type lineRequest struct {
	ItemID      string         `json:"itemId" validate:"required,uuid"`
	Qty         int64          `json:"qty" validate:"required,gt=0"`
	BonusQty    int64          `json:"bonusQty" validate:"gte=0"`
	UnitCost    pricing.Money  `json:"unitCost" validate:"gte=0"`
	MarkupBps   int32          `json:"markupBps" validate:"gte=0"`
	ManualPrice *pricing.Money `json:"manualPrice" validate:"omitempty,gt=0"`
}

func (h *Handler) requestScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, Domain, bool) {
	t, ok := terminal.FromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusForbidden, "NOT_ENABLED", "terminal is not enabled for staging operations", nil)
		return uuid.Nil, "", false
	}
	domain, err := ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown staging domain", nil)
		return uuid.Nil, "", false
	}
	return t.ID, domain, true
}

func (h *Handler) decodeLine(w http.ResponseWriter, r *http.Request) (AddInput, bool) {
	var payload lineRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return AddInput{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"error": err.Error()})
		return AddInput{}, false
	}
	itemID, err := uuid.Parse(payload.ItemID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return AddInput{}, false
	}
	return AddInput{
		ItemID:      itemID,
		Qty:         payload.Qty,
		BonusQty:    payload.BonusQty,
		UnitCost:    payload.UnitCost,
		MarkupBps:   payload.MarkupBps,
		ManualPrice: payload.ManualPrice,
	}, true
}

// List returns the ledger snapshot for the calling terminal.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	terminalID, domain, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	snap, err := h.Svc.List(r.Context(), terminalID, domain)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load staged lines", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// AddLine stages a new line.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	terminalID, domain, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeLine(w, r)
	if !ok {
		return
	}
	snap, err := h.Svc.Add(r.Context(), terminalID, domain, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": snap})
}

// ReplaceLine substitutes a staged line whole.
func (h *Handler) ReplaceLine(w http.ResponseWriter, r *http.Request) {
	terminalID, domain, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	in, ok := h.decodeLine(w, r)
	if !ok {
		return
	}
	snap, err := h.Svc.Replace(r.Context(), terminalID, domain, lineID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// RemoveLine deletes a staged line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	terminalID, domain, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	snap, err := h.Svc.Remove(r.Context(), terminalID, domain, lineID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

// Clear empties the ledger.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	terminalID, domain, ok := h.requestScope(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), terminalID, domain); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to clear staged lines", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidLine):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_LINE", "reference item is missing or unknown", nil)
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_QUANTITY", "quantity must be positive", nil)
	case errors.Is(err, ErrInvalidPrice):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PRICE", "unit price must be positive", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "staged line not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "staging operation failed", nil)
	}
}
