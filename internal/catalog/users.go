package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/query"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
)

// Stored-only user fields, never returned.
const (
	fieldPasswordHash = "passwordHash"
	fieldPasswordAlgo = "passwordAlgo"
)

// RegisterInput creates an account. Self-registration may choose the user
// or publisher role; admins may also create admins.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=user publisher admin"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserUpdate changes profile fields. Nil fields are left alone.
type UserUpdate struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Role  *string `json:"role" validate:"omitempty,oneof=user publisher admin"`
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Session is the result of a successful login or registration.
type Session struct {
	Token string         `json:"token"`
	User  model.Document `json:"user"`
}

// Credentials bundles what UserService needs to authenticate users.
type Credentials struct {
	Tokens            *identity.TokenService
	Hasher            *identity.Hasher
	MinPasswordLength int
}

// UserService manages accounts and logins.
type UserService struct {
	store      types.DocumentStore
	translator *query.Translator
	creds      Credentials
	logger     *slog.Logger
}

func NewUserService(store types.DocumentStore, translator *query.Translator, creds Credentials, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	if creds.MinPasswordLength <= 0 {
		creds.MinPasswordLength = identity.DefaultConfig().MinPasswordLength
	}
	return &UserService{
		store:      store,
		translator: translator,
		creds:      creds,
		logger:     logger.With("component", "users"),
	}
}

// Register creates a user or publisher account and logs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Role == identity.RoleAdmin {
		return nil, fmt.Errorf("%w: role admin cannot be self-assigned", model.ErrInvalidInput)
	}
	user, err := s.create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Create adds an account on behalf of an admin.
func (s *UserService) Create(ctx context.Context, in RegisterInput) (model.Document, error) {
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in RegisterInput) (model.Document, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = identity.RoleUser
	}

	hash, algo, err := s.creds.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.Insert(ctx, Users, model.Document{
		"name":            in.Name,
		"email":           in.Email,
		"role":            in.Role,
		fieldPasswordHash: hash,
		fieldPasswordAlgo: algo,
	})
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			return nil, fmt.Errorf("email %s: %w", in.Email, err)
		}
		return nil, err
	}
	s.logger.Info("User created", "user_id", user.GetID(), "role", in.Role)
	return publicUser(user), nil
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords fail the same way.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", model.ErrUnauthenticated)
		}
		return nil, err
	}

	ok, err := identity.VerifyPassword(in.Password, user.GetString(fieldPasswordHash), user.GetString(fieldPasswordAlgo))
	if err != nil {
		s.logger.Warn("Password verification failed", "user_id", user.GetID(), "error", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrUnauthenticated)
	}
	return s.session(publicUser(user))
}

// ChangePassword replaces the password of id and issues a fresh token.
func (s *UserService) ChangePassword(ctx context.Context, id string, in PasswordChange) (*Session, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	user, err := s.store.Get(ctx, Users, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	ok, _ := identity.VerifyPassword(in.CurrentPassword, user.GetString(fieldPasswordHash), user.GetString(fieldPasswordAlgo))
	if !ok {
		return nil, fmt.Errorf("%w: password is incorrect", model.ErrUnauthenticated)
	}
	if err := s.checkPassword(in.NewPassword); err != nil {
		return nil, err
	}

	hash, algo, err := s.creds.Hasher.Hash(in.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	updated, err := s.store.Patch(ctx, Users, id, map[string]interface{}{
		fieldPasswordHash: hash,
		fieldPasswordAlgo: algo,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return s.session(publicUser(updated))
}

func (s *UserService) List(ctx context.Context, params url.Values) (*query.Envelope, error) {
	plan := s.translator.Translate(Users, params)
	env, err := query.Execute(ctx, s.store, plan)
	if err != nil {
		return nil, err
	}
	for i, u := range env.Data {
		env.Data[i] = publicUser(u)
	}
	return env, nil
}

func (s *UserService) Get(ctx context.Context, id string) (model.Document, error) {
	user, err := s.store.Get(ctx, Users, id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return publicUser(user), nil
}

// Update applies a profile change. Only admins may change roles.
func (s *UserService) Update(ctx context.Context, actor identity.Actor, id string, in UserUpdate) (model.Document, error) {
	if !actor.Owns(id) {
		return nil, fmt.Errorf("%w: user %s may not update user %s", model.ErrPermissionDenied, actor.ID, id)
	}
	if in.Role != nil && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may change roles", model.ErrPermissionDenied)
	}
	if in.Email != nil {
		e := normalizeEmail(*in.Email)
		in.Email = &e
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		set["email"] = *in.Email
	}
	if in.Role != nil {
		set["role"] = *in.Role
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	updated, err := s.store.Patch(ctx, Users, id, set, nil)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	return publicUser(updated), nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, Users, id); err != nil {
		return fmt.Errorf("user %s: %w", id, err)
	}
	return nil
}

// LoadActor resolves a token subject to the user's current role.
func (s *UserService) LoadActor(ctx context.Context, id string) (identity.Actor, error) {
	user, err := s.store.Get(ctx, Users, id)
	if err != nil {
		return identity.Actor{}, err
	}
	return identity.Actor{ID: user.GetID(), Role: user.GetString("role")}, nil
}

// Entity kinds reported by WhoAmI.
const (
	KindUser     = "USER"
	KindBootcamp = "BOOTCAMP"
	KindCourse   = "COURSE"
)

// Identified is a record found by WhoAmI.
type Identified struct {
	Kind string
	Data model.Document
}

// WhoAmI reports whether id names a user, a bootcamp or a course, checked
// in that order.
func (s *UserService) WhoAmI(ctx context.Context, id string) (*Identified, error) {
	for _, c := range []struct{ collection, kind string }{
		{Users, KindUser},
		{Bootcamps, KindBootcamp},
		{Courses, KindCourse},
	} {
		doc, err := s.store.Get(ctx, c.collection, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if c.collection == Users {
			doc = publicUser(doc)
		}
		return &Identified{Kind: c.kind, Data: doc}, nil
	}
	return nil, fmt.Errorf("%w: invalid id %s", model.ErrNotFound, id)
}

func (s *UserService) findByEmail(ctx context.Context, email string) (model.Document, error) {
	docs, err := s.store.Find(ctx, model.Query{
		Collection: Users,
		Filters:    model.Filters{model.Eq("email", email)},
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, model.ErrNotFound
	}
	return docs[0], nil
}

func (s *UserService) session(user model.Document) (*Session, error) {
	token, err := s.creds.Tokens.Issue(identity.Actor{ID: user.GetID(), Role: user.GetString("role")})
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *UserService) checkPassword(p string) error {
	if len(p) < s.creds.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", model.ErrInvalidInput, s.creds.MinPasswordLength)
	}
	return nil
}

func publicUser(doc model.Document) model.Document {
	out := doc.Clone()
	delete(out, fieldPasswordHash)
	delete(out, fieldPasswordAlgo)
	return out
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// validateStruct runs the struct tags of v and reports every failing field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	problems := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		if fe.Tag() == "required" {
			problems = append(problems, field+" is required")
			continue
		}
		problems = append(problems, field+" "+describe(validator.ValidationErrors{fe}))
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(problems, ", "))
}
