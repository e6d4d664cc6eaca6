package service

import (
	"context"
	"errors"
	"fmt"

	"foodconnect/internal/identity"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/statemachine"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("forbidden")
	ErrNotApproved         = errors.New("account not approved")
	ErrAlreadyClaimed      = errors.New("food post is no longer available")
	ErrInvalidTransition   = statemachine.ErrInvalidTransition
	ErrNotFound            = errors.New("not found")
	ErrDuplicateCredential = identity.ErrDuplicateCredential
	ErrInvalidCredentials  = identity.ErrInvalidCredentials
	ErrProfileMissing      = errors.New("user profile missing for credential")
)

// NotApprovedError is returned when a pending or rejected account tries to
// use a dashboard. It matches both ErrNotApproved and ErrForbidden.
type NotApprovedError struct {
	Status string
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("account is %s", e.Status)
}

func (e *NotApprovedError) Is(target error) bool {
	return target == ErrNotApproved || target == ErrForbidden
}

// Message is the text shown on the status screen
func (e *NotApprovedError) Message() string {
	switch e.Status {
	case model.StatusPending:
		return "Your account is currently under review by our administrators. You will be notified once it has been approved."
	case model.StatusRejected:
		return "Your account registration was not approved. If you believe this is an error, please contact support."
	default:
		return "Your account is not approved."
	}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// loadActor re-reads the acting user so role and status are never taken from a stale token
func loadActor(ctx context.Context, users repository.UserRepository, id string) (*model.User, error) {
	actor, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown actor", ErrForbidden)
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	return actor, nil
}

// requireApproved checks the actor has role and may use its dashboard
func requireApproved(actor *model.User, role string) error {
	if actor.Role != role {
		return fmt.Errorf("%w: requires role %s", ErrForbidden, role)
	}
	if !actor.IsApproved() {
		return &NotApprovedError{Status: actor.Status}
	}
	return nil
}

// AuthorizeActor loads the acting user and checks it is an approved holder of role
func AuthorizeActor(ctx context.Context, users repository.UserRepository, id, role string) (*model.User, error) {
	actor, err := loadActor(ctx, users, id)
	if err != nil {
		return nil, err
	}
	if err := requireApproved(actor, role); err != nil {
		return nil, err
	}
	return actor, nil
}
