package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/devcamper/catalog/pkg/model"
)

// ActorLoader re-reads the actor behind a verified token, so deleted users
// and role changes take effect before the token expires.
type ActorLoader interface {
	LoadActor(ctx context.Context, id string) (Actor, error)
}

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Guard is the bearer-token middleware.
type Guard struct {
	tokens  *TokenService
	loader  ActorLoader
	onError ErrorWriter
}

// NewGuard creates a guard. loader may be nil, in which case the actor is
// taken from the token claims alone.
func NewGuard(tokens *TokenService, loader ActorLoader, onError ErrorWriter) *Guard {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Guard{tokens: tokens, loader: loader, onError: onError}
}

// Protect rejects requests without a valid bearer token and stores the
// actor in the request context.
func (g *Guard) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			g.onError(w, r, model.ErrUnauthenticated)
			return
		}

		actor, err := g.tokens.Verify(token)
		if err != nil {
			g.onError(w, r, fmt.Errorf("%w: %w", model.ErrUnauthenticated, err))
			return
		}

		if g.loader != nil {
			loaded, err := g.loader.LoadActor(r.Context(), actor.ID)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					g.onError(w, r, model.ErrUnauthenticated)
					return
				}
				slog.Warn("Failed to load actor", "user_id", actor.ID, "error", err)
				g.onError(w, r, err)
				return
			}
			actor = loaded
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

// Authorize admits actors holding one of roles. It must run inside Protect.
func (g *Guard) Authorize(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				g.onError(w, r, model.ErrUnauthenticated)
				return
			}
			if !actor.HasRole(roles...) {
				g.onError(w, r, fmt.Errorf("%w: user role %q is not authorized to access this route", model.ErrPermissionDenied, actor.Role))
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
