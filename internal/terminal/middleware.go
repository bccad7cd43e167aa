package terminal

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/backend-erp/internal/common"
	"github.com/noah-isme/backend-erp/internal/obs"
)

// TokenHeader carries the workstation token on staging requests.
const TokenHeader = "X-Terminal-Token"

type ctxKey struct{}

// WithTerminal stores a validated terminal on the context.
func WithTerminal(ctx context.Context, t Terminal) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext returns the validated terminal placed by the gate middleware.
func FromContext(ctx context.Context) (Terminal, bool) {
	t, ok := ctx.Value(ctxKey{}).(Terminal)
	return t, ok
}

// Middleware gates staging routes on a validated terminal.
type Middleware struct {
	Service *Service
}

// RequireTerminal validates the token header and rejects requests from
// unregistered or disabled workstations. The token is echoed back in the
// error details so the user can hand it to an operator for enablement.
func (m Middleware) RequireTerminal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(TokenHeader)
		t, err := m.Service.Validate(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrNotEnabled) {
				if obs.TerminalValidationTotal != nil {
					obs.TerminalValidationTotal.WithLabelValues("rejected").Inc()
				}
				common.JSONError(w, http.StatusForbidden, "NOT_ENABLED", "terminal is not enabled for staging operations", map[string]string{"token": token})
				return
			}
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to validate terminal", nil)
			return
		}
		if obs.TerminalValidationTotal != nil {
			obs.TerminalValidationTotal.WithLabelValues("validated").Inc()
		}
		ctx := WithTerminal(r.Context(), t)
		ctx = obs.WithTerminalID(ctx, t.ID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
