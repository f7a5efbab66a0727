package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/shelf-api/internal/auth"
	"github.com/isdelr/shelf-api/internal/database"
	"github.com/isdelr/shelf-api/internal/models"
	"github.com/rs/zerolog/log"
)

// EmailField is the user document field that identifies an account.
const EmailField = "email"

// ErrMissingEmail is returned when a signup body has no usable email.
var ErrMissingEmail = errors.New("email is required")

// SignupResult describes the outcome of a signup call.
type SignupResult struct {
	Token   string
	UserID  string
	Created bool // false when the email already had an account (a login)
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, user models.Document) (SignupResult, error)
	GetUserByID(ctx context.Context, id string) (models.Document, error)
	GetUserByEmail(ctx context.Context, email string) (models.Document, error)
	UpdateUser(ctx context.Context, id string, fields models.Document) error
}

// UserService provides business logic for user management.
type UserService struct {
	store  database.Store
	tokens auth.TokenIssuer
}

// NewUserService creates a new UserService.
func NewUserService(store database.Store, tokens auth.TokenIssuer) *UserService {
	return &UserService{store: store, tokens: tokens}
}

// Signup creates the user on first sight of an email and logs it in
// otherwise. Either way a fresh token is issued.
func (s *UserService) Signup(ctx context.Context, user models.Document) (SignupResult, error) {
	email := user.String(EmailField)
	if email == "" {
		return SignupResult{}, ErrMissingEmail
	}

	token, err := s.tokens.Issue(email)
	if err != nil {
		return SignupResult{}, fmt.Errorf("failed to issue token: %w", err)
	}

	existing, err := s.store.FindOne(ctx, database.Users, EmailField, email)
	switch {
	case err == nil:
		return SignupResult{Token: token, UserID: existing.ID()}, nil
	case !errors.Is(err, database.ErrNotFound):
		return SignupResult{}, err
	}

	id, err := s.store.Insert(ctx, database.Users, user.WithoutID())
	if err != nil {
		return SignupResult{}, err
	}
	log.Info().Str("user_id", id).Str("email", email).Msg("User created")
	return SignupResult{Token: token, UserID: id, Created: true}, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.Document, error) {
	id, err := database.ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, database.Users, id)
}

// GetUserByEmail retrieves a single user by their email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (models.Document, error) {
	return s.store.FindOne(ctx, database.Users, EmailField, email)
}

// UpdateUser sets the given profile fields on an existing user.
func (s *UserService) UpdateUser(ctx context.Context, id string, fields models.Document) error {
	id, err := database.ParseID(id)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, database.Users, id, fields.WithoutID())
}
