package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"foodconnect/internal/events"
	"foodconnect/internal/identity"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/utils"
)

const minPasswordLength = 6

// LoginResult is returned on successful authentication
type LoginResult struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user"`
	Dashboard string      `json:"dashboard"`
}

// AuthService provides registration and authentication
type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	users    repository.UserRepository
	identity *identity.Provider
	jwtUtil  *utils.JWTUtil
	hub      *events.Hub
	now      func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(users repository.UserRepository, idp *identity.Provider, jwtUtil *utils.JWTUtil, hub *events.Hub) AuthService {
	return &authService{
		users:    users,
		identity: idp,
		jwtUtil:  jwtUtil,
		hub:      hub,
		now:      time.Now,
	}
}

type profileInput struct {
	name, email, password, city string
}

func validateProfile(in profileInput) (profileInput, error) {
	in.name = strings.TrimSpace(in.name)
	in.email = strings.TrimSpace(in.email)
	in.city = strings.TrimSpace(in.city)

	if in.name == "" {
		return in, validationError("name is required")
	}
	if in.email == "" {
		return in, validationError("email is required")
	}
	if _, err := mail.ParseAddress(in.email); err != nil {
		return in, validationError("email %q is not valid", in.email)
	}
	if in.city == "" {
		return in, validationError("city is required")
	}
	if len(in.password) < minPasswordLength {
		return in, validationError("password must be at least %d characters", minPasswordLength)
	}
	return in, nil
}

// Register creates a pending restaurant or NGO account
func (s *authService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !model.ValidSelfRegistrationRole(role) {
		return nil, validationError("role must be %s or %s", model.RoleRestaurant, model.RoleNGO)
	}
	in, err := validateProfile(profileInput{name: req.Name, email: req.Email, password: req.Password, city: req.City})
	if err != nil {
		return nil, err
	}

	subject, err := s.identity.CreateCredential(ctx, in.email, in.password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        subject,
		Name:      in.name,
		Email:     identity.NormalizeEmail(in.email),
		Role:      role,
		Status:    model.StatusPending,
		City:      in.city,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if delErr := s.identity.Delete(ctx, subject); delErr != nil {
			log.Printf("Error removing credential %s after failed profile write: %v", subject, delErr)
		}
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	s.hub.Publish(events.Event{Kind: events.UserChanged, ID: user.ID})
	return user, nil
}

// Login verifies credentials and issues a session token for approved accounts
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	subject, err := s.identity.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("ERROR: credential %s has no user profile", subject)
			return nil, ErrProfileMissing
		}
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}

	if !user.IsApproved() {
		return nil, &NotApprovedError{Status: user.Status}
	}

	token, err := s.jwtUtil.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{Token: token, User: user, Dashboard: model.DashboardPath(user.Role)}, nil
}

// Profile returns the stored user for id
func (s *authService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	return user, nil
}
