package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"foodconnect/internal/events"
	"foodconnect/internal/identity"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/statemachine"
)

// AdminAccount describes a bootstrap admin
type AdminAccount struct {
	Name     string
	Email    string
	Password string
	City     string
}

// AccountService handles admin decisions over accounts
type AccountService interface {
	Decide(ctx context.Context, adminID, userID, decision string) (*model.User, error)
	ListUsers(ctx context.Context, adminID string, filters model.UserFilters) ([]model.User, error)
	EnsureAdmin(ctx context.Context, account AdminAccount) (*model.User, bool, error)
	BackfillStatuses(ctx context.Context) (int64, error)
}

type accountService struct {
	users    repository.UserRepository
	identity *identity.Provider
	hub      *events.Hub
	now      func() time.Time
}

// NewAccountService creates a new AccountService
func NewAccountService(users repository.UserRepository, idp *identity.Provider, hub *events.Hub) AccountService {
	return &accountService{users: users, identity: idp, hub: hub, now: time.Now}
}

func (s *accountService) requireAdmin(ctx context.Context, adminID string) error {
	actor, err := loadActor(ctx, s.users, adminID)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleAdmin {
		return fmt.Errorf("%w: requires role %s", ErrForbidden, model.RoleAdmin)
	}
	return nil
}

// Decide sets a non-admin account to approved or rejected.
// The write is a blind overwrite, so repeating a decision is a no-op.
func (s *accountService) Decide(ctx context.Context, adminID, userID, decision string) (*model.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if decision != model.StatusApproved && decision != model.StatusRejected {
		return nil, validationError("decision must be %s or %s", model.StatusApproved, model.StatusRejected)
	}

	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if target.Role == model.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be decided", ErrForbidden)
	}
	if err := statemachine.CanDecide(target.Status, decision); err != nil {
		return nil, validationError("%v", err)
	}

	if err := s.users.UpdateStatus(ctx, userID, decision); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	log.Printf("INFO: user %s set to %s by admin %s", userID, decision, adminID)

	target.Status = decision
	s.hub.Publish(events.Event{Kind: events.UserChanged, ID: userID})
	return target, nil
}

// ListUsers returns non-admin accounts for the approval table
func (s *accountService) ListUsers(ctx context.Context, adminID string, filters model.UserFilters) ([]model.User, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	users, err := s.users.FindAll(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return withoutAdmins(users), nil
}

func withoutAdmins(users []model.User) []model.User {
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.Role != model.RoleAdmin {
			out = append(out, u)
		}
	}
	return out
}

// EnsureAdmin creates an approved admin unless the email is already registered.
// The bool reports whether anything was created.
func (s *accountService) EnsureAdmin(ctx context.Context, account AdminAccount) (*model.User, bool, error) {
	in, err := validateProfile(profileInput{name: account.Name, email: account.Email, password: account.Password, city: account.City})
	if err != nil {
		return nil, false, err
	}

	subject, found, err := s.identity.Lookup(ctx, in.email)
	if err != nil {
		return nil, false, err
	}
	if found {
		existing, err := s.users.FindByID(ctx, subject)
		switch {
		case err == nil && existing.Role == model.RoleAdmin:
			return existing, false, nil
		case err == nil:
			return nil, false, fmt.Errorf("%w: %s is registered as %s", ErrForbidden, in.email, existing.Role)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, false, fmt.Errorf("failed to load user: %w", err)
		}
		// credential without profile: finish the half-written admin below
	} else {
		subject, err = s.identity.CreateCredential(ctx, in.email, in.password)
		if err != nil {
			return nil, false, err
		}
	}

	admin := &model.User{
		ID:        subject,
		Name:      in.name,
		Email:     identity.NormalizeEmail(in.email),
		Role:      model.RoleAdmin,
		Status:    model.StatusApproved,
		City:      in.city,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, false, fmt.Errorf("failed to create admin profile: %w", err)
	}
	log.Printf("INFO: bootstrap admin %s created", admin.Email)

	s.hub.Publish(events.Event{Kind: events.UserChanged, ID: admin.ID})
	return admin, true, nil
}

// BackfillStatuses repairs accounts written without a status
func (s *accountService) BackfillStatuses(ctx context.Context) (int64, error) {
	n, err := s.users.BackfillStatuses(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hub.Publish(events.Event{Kind: events.UserChanged})
	}
	return n, nil
}
