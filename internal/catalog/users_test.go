package catalog

import (
	"context"
	"net/url"
	"testing"

	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/query"
	qconfig "github.com/devcamper/catalog/internal/query/config"
	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, f *fixture) (*UserService, *identity.TokenService) {
	t.Helper()
	cfg := identity.Config{JWTSecret: "0123456789abcdef0123", BcryptCost: 4}
	tokens, err := identity.NewTokenService(cfg)
	require.NoError(t, err)
	svc := NewUserService(f.store, query.NewTranslator(qconfig.DefaultConfig()), Credentials{
		Tokens: tokens,
		Hasher: identity.NewHasher(cfg),
	}, nil)
	return svc, tokens
}

func register(t *testing.T, svc *UserService, email, role string) *Session {
	t.Helper()
	s, err := svc.Register(context.Background(), RegisterInput{Name: "John Doe", Email: email, Password: "123456", Role: role})
	require.NoError(t, err)
	return s
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	svc, tokens := newUserService(t, f)
	ctx := context.Background()

	s := register(t, svc, " John@Example.com ", identity.RolePublisher)
	assert.Equal(t, "john@example.com", s.User["email"])
	assert.Equal(t, identity.RolePublisher, s.User["role"])
	assert.NotContains(t, s.User, fieldPasswordHash)

	actor, err := tokens.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.User.GetID(), actor.ID)
	assert.Equal(t, identity.RolePublisher, actor.Role)

	login, err := svc.Login(ctx, LoginInput{Email: "JOHN@example.com", Password: "123456"})
	require.NoError(t, err)
	assert.Equal(t, s.User.GetID(), login.User.GetID())
	assert.NotContains(t, login.User, fieldPasswordHash)

	_, err = svc.Login(ctx, LoginInput{Email: "john@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "123456"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.Login(ctx, LoginInput{Email: "john@example.com"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestUserService_RegisterDefaultsRole(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)

	s := register(t, svc, "jane@example.com", "")
	assert.Equal(t, identity.RoleUser, s.User["role"])
}

func TestUserService_RegisterRejects(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	register(t, svc, "taken@example.com", "")

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
		message string
	}{
		{"admin role", RegisterInput{Name: "A", Email: "a@example.com", Password: "123456", Role: identity.RoleAdmin}, model.ErrInvalidInput, "admin"},
		{"unknown role", RegisterInput{Name: "A", Email: "a@example.com", Password: "123456", Role: "root"}, model.ErrInvalidInput, "role must be one of: user, publisher, admin"},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "123456"}, model.ErrInvalidInput, "email must be a valid email"},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "123456"}, model.ErrInvalidInput, "name is required"},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "123"}, model.ErrInvalidInput, "at least 6 characters"},
		{"duplicate email", RegisterInput{Name: "B", Email: "TAKEN@example.com", Password: "123456"}, model.ErrExists, "taken@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestUserService_AdminCreate(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)

	u, err := svc.Create(context.Background(), RegisterInput{Name: "Root", Email: "root@example.com", Password: "123456", Role: identity.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, u["role"])
	assert.NotContains(t, u, fieldPasswordHash)
}

func TestUserService_ListAndGetHidePasswords(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	s := register(t, svc, "a@example.com", "")
	register(t, svc, "b@example.com", "")

	env, err := svc.List(ctx, url.Values{})
	require.NoError(t, err)
	require.Equal(t, 2, env.Count)
	for _, u := range env.Data {
		assert.NotContains(t, u, fieldPasswordHash)
		assert.NotContains(t, u, fieldPasswordAlgo)
	}

	u, err := svc.Get(ctx, s.User.GetID())
	require.NoError(t, err)
	assert.NotContains(t, u, fieldPasswordHash)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserService_Update(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	s := register(t, svc, "a@example.com", "")
	id := s.User.GetID()
	self := identity.Actor{ID: id, Role: identity.RoleUser}

	name := "  Jane Doe "
	u, err := svc.Update(ctx, self, id, UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u["name"])
	assert.NotContains(t, u, fieldPasswordHash)

	role := identity.RolePublisher
	_, err = svc.Update(ctx, self, id, UserUpdate{Role: &role})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = svc.Update(ctx, reviewer2, id, UserUpdate{Name: &name})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	u, err = svc.Update(ctx, admin, id, UserUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, identity.RolePublisher, u["role"])

	actor, err := svc.LoadActor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, identity.Actor{ID: id, Role: identity.RolePublisher}, actor)

	bad := "nope"
	_, err = svc.Update(ctx, self, id, UserUpdate{Email: &bad})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	u, err = svc.Update(ctx, self, id, UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, id, u.GetID())
}

func TestUserService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	s := register(t, svc, "a@example.com", "")
	id := s.User.GetID()

	_, err := svc.ChangePassword(ctx, id, PasswordChange{CurrentPassword: "wrong!", NewPassword: "abcdefg"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.ChangePassword(ctx, id, PasswordChange{CurrentPassword: "123456", NewPassword: "abc"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	fresh, err := svc.ChangePassword(ctx, id, PasswordChange{CurrentPassword: "123456", NewPassword: "abcdefg"})
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.Token)

	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "123456"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	_, err = svc.Login(ctx, LoginInput{Email: "a@example.com", Password: "abcdefg"})
	assert.NoError(t, err)
}

func TestUserService_Delete(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	s := register(t, svc, "a@example.com", "")

	require.NoError(t, svc.Delete(ctx, s.User.GetID()))
	assert.ErrorIs(t, svc.Delete(ctx, s.User.GetID()), model.ErrNotFound)
	_, err := svc.LoadActor(ctx, s.User.GetID())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserService_WhoAmI(t *testing.T) {
	f := newFixture(t)
	svc, _ := newUserService(t, f)
	ctx := context.Background()
	s := register(t, svc, "a@example.com", "")
	b := f.mustBootcamp(t, publisher, "Devworks")
	c, err := f.courses.Create(ctx, publisher, b.GetID(), courseInput(1000), nil)
	require.NoError(t, err)

	tests := []struct {
		id   string
		kind string
	}{
		{s.User.GetID(), KindUser},
		{b.GetID(), KindBootcamp},
		{c.GetID(), KindCourse},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, err := svc.WhoAmI(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.id, got.Data.GetID())
			assert.NotContains(t, got.Data, fieldPasswordHash)
		})
	}

	_, err = svc.WhoAmI(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
