package services

import (
	"context"
	"errors"
	"fmt"
	"shopease/models"
	"shopease/store"
	"shopease/utils"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepo is the user persistence the account service needs
type UserRepo interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// TokenIssuer signs bearer tokens
type TokenIssuer interface {
	Issue(user models.User) (string, error)
}

// AccountService handles registration and login
type AccountService struct {
	users  UserRepo
	tokens TokenIssuer
	log    *zap.Logger
}

// NewAccountService creates an AccountService
func NewAccountService(users UserRepo, tokens TokenIssuer, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{users: users, tokens: tokens, log: log}
}

// RegisterInput is a sign-up request
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Photo    string
}

// Register creates a customer account unless the email is already taken.
// The boolean is false, with a nil error, for an existing email.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (models.User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, false, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, false, fmt.Errorf("lookup user: %w", err)
	}

	user := models.User{
		Name:  strings.TrimSpace(in.Name),
		Email: email,
		Photo: strings.TrimSpace(in.Photo),
		Role:  models.RoleCustomer,
	}
	// accounts created through a social login carry no password
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return models.User{}, false, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hash)
	}

	created, err := s.users.Create(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent registration
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("insert user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", created.ID.Hex()))
	return created, true, nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords both fail with utils.ErrUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.User{}, utils.ErrUnauthorized
	}
	if err != nil {
		return "", models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	// passwordless accounts cannot log in with credentials
	if user.Password == "" || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", models.User{}, utils.ErrUnauthorized
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", models.User{}, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}

// Role returns the role stored for email. Callers may only ask about
// themselves, admins included.
func (s *AccountService) Role(ctx context.Context, email string, actor Actor) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !strings.EqualFold(strings.TrimSpace(actor.Email), email) {
		return "", ErrForbidden
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", notFoundOr(err, "lookup user")
	}
	return user.Role, nil
}

// ListUsers returns every account
func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

