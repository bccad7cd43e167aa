package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotEnabled indicates the registry has no enabled terminal for the token.
// The session must surface the token so an operator can enable it out-of-band;
// staging operations stay blocked until a later session validates.
var ErrNotEnabled = errors.New("terminal not enabled")

// ErrNotFound indicates no terminal record exists for the token.
var ErrNotFound = errors.New("terminal not found")

// Terminal identifies a registered workstation gating access to staging.
type Terminal struct {
	ID             uuid.UUID `json:"id"`
	Token          string    `json:"token"`
	Enabled        bool      `json:"enabled"`
	BoundResources []string  `json:"boundResources,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store defines the identity-registry operations the service needs. Enabling
// and disabling terminals happens out-of-band and is not part of this surface.
type Store interface {
	GetTerminalByToken(ctx context.Context, token string) (Terminal, error)
	CreateTerminal(ctx context.Context, t Terminal) (Terminal, error)
}

// Service resolves and validates workstation identity.
type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Resolve loads the terminal for the supplied token, creating a disabled
// record with a freshly generated token when none is supplied or known. The
// returned terminal is unvalidated until Validate succeeds.
func (s *Service) Resolve(ctx context.Context, token string) (Terminal, error) {
	if s == nil || s.Store == nil {
		return Terminal{}, errors.New("terminal service not configured")
	}
	token = strings.TrimSpace(token)
	if token != "" {
		t, err := s.Store.GetTerminalByToken(ctx, token)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Terminal{}, fmt.Errorf("load terminal: %w", err)
		}
	}
	if token == "" {
		token = uuid.NewString()
	}
	created, err := s.Store.CreateTerminal(ctx, Terminal{
		ID:        uuid.New(),
		Token:     token,
		Enabled:   false,
		CreatedAt: s.now(),
	})
	if err != nil {
		return Terminal{}, fmt.Errorf("register terminal: %w", err)
	}
	return created, nil
}

// Validate performs the single synchronous registry check for a session
// start. A missing or disabled terminal fails with ErrNotEnabled; there are
// no retries here.
func (s *Service) Validate(ctx context.Context, token string) (Terminal, error) {
	if s == nil || s.Store == nil {
		return Terminal{}, errors.New("terminal service not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Terminal{}, fmt.Errorf("empty token: %w", ErrNotEnabled)
	}
	t, err := s.Store.GetTerminalByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Terminal{}, fmt.Errorf("token %s not registered: %w", token, ErrNotEnabled)
		}
		return Terminal{}, fmt.Errorf("load terminal: %w", err)
	}
	if !t.Enabled {
		return Terminal{}, fmt.Errorf("token %s pending enablement: %w", token, ErrNotEnabled)
	}
	return t, nil
}
