package terminal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/events"
)

// Handler wires the terminal service to HTTP.
type Handler struct {
	Svc    *Service
	Events *events.Bus
}

// Resolve creates or loads the terminal for the supplied token. A client with
// no stored token receives a freshly generated one to persist locally.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "terminal service not configured", nil)
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	t, err := h.Svc.Resolve(r.Context(), payload.Token)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to resolve terminal", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// Validate performs the session-start registry check.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "terminal service not configured", nil)
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	t, err := h.Svc.Validate(r.Context(), payload.Token)
	if err != nil {
		if errors.Is(err, ErrNotEnabled) {
			common.JSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{"validated": false, "token": payload.Token},
			})
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to validate terminal", nil)
		return
	}
	if h.Events != nil {
		_, _ = h.Events.Emit(r.Context(), events.TopicTerminalValidated, t.ID, map[string]any{"token": t.Token})
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"validated": true, "terminal": t},
	})
}
