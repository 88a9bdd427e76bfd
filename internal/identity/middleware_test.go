package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context, id string) (Actor, error)

func (f loaderFunc) LoadActor(ctx context.Context, id string) (Actor, error) { return f(ctx, id) }

type recorded struct {
	err error
}

func (rec *recorded) write(w http.ResponseWriter, _ *http.Request, err error) {
	rec.err = err
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrPermissionDenied):
		status = http.StatusForbidden
	}
	w.WriteHeader(status)
}

func echoActor(w http.ResponseWriter, r *http.Request) {
	a, _ := ActorFrom(r.Context())
	_, _ = w.Write([]byte(a.ID + ":" + a.Role))
}

func TestGuard_Protect(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue(Actor{ID: "u1", Role: RoleUser})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "u1:user"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorded{}
			g := NewGuard(tokens, nil, rec.write)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			g.Protect(echoActor)(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestGuard_ProtectReloadsActor(t *testing.T) {
	tokens := newTestTokens(t)
	token, err := tokens.Issue(Actor{ID: "u1", Role: RoleUser})
	require.NoError(t, err)

	loader := loaderFunc(func(_ context.Context, id string) (Actor, error) {
		if id == "u1" {
			return Actor{ID: id, Role: RolePublisher}, nil
		}
		return Actor{}, model.ErrNotFound
	})
	g := NewGuard(tokens, loader, (&recorded{}).write)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	g.Protect(echoActor)(w, req)
	assert.Equal(t, "u1:publisher", w.Body.String())

	gone, err := tokens.Issue(Actor{ID: "deleted", Role: RoleAdmin})
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+gone)
	w = httptest.NewRecorder()
	g.Protect(echoActor)(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuard_Authorize(t *testing.T) {
	rec := &recorded{}
	g := NewGuard(newTestTokens(t), nil, rec.write)
	h := g.Authorize(RolePublisher, RoleAdmin)(echoActor)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	h(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h(w, req.WithContext(WithActor(req.Context(), Actor{ID: "u1", Role: RoleUser})))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.ErrorIs(t, rec.err, model.ErrPermissionDenied)

	w = httptest.NewRecorder()
	h(w, req.WithContext(WithActor(req.Context(), Actor{ID: "u2", Role: RoleAdmin})))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActor(t *testing.T) {
	assert.True(t, Actor{ID: "u1", Role: RoleUser}.Owns("u1"))
	assert.False(t, Actor{ID: "u1", Role: RolePublisher}.Owns("u2"))
	assert.True(t, Actor{ID: "a", Role: RoleAdmin}.Owns("u2"))
	assert.False(t, Actor{}.Owns(""))
	assert.True(t, ValidRole(RolePublisher))
	assert.False(t, ValidRole("root"))

	_, ok := ActorFrom(context.Background())
	assert.False(t, ok)
}
