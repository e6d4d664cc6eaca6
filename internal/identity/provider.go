// Package identity owns login credentials. Profiles live in the user
// repository and are linked to a credential by its subject.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodconnect/internal/repository"
	"foodconnect/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

var (
	ErrDuplicateCredential = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
)

// Provider creates and verifies email/password credentials
type Provider struct {
	creds repository.CredentialRepository
}

// NewProvider creates a Provider backed by the given credential store
func NewProvider(creds repository.CredentialRepository) *Provider {
	return &Provider{creds: creds}
}

// NormalizeEmail trims and case-folds an email for lookups.
// A Caser keeps state, so each call gets its own.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// CreateCredential stores a new credential and returns its subject
func (p *Provider) CreateCredential(ctx context.Context, email, password string) (string, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", err
	}

	cred := &repository.Credential{
		Subject:      uuid.Must(uuid.NewV7()).String(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
	}
	if err := p.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return "", ErrDuplicateCredential
		}
		return "", fmt.Errorf("failed to store credential: %w", err)
	}
	return cred.Subject, nil
}

// Verify checks an email/password pair and returns the subject on success.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (p *Provider) Verify(ctx context.Context, email, password string) (string, error) {
	cred, err := p.creds.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up credential: %w", err)
	}
	if !utils.CheckPasswordHash(password, cred.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return cred.Subject, nil
}

// Lookup returns the subject registered for email, if any
func (p *Provider) Lookup(ctx context.Context, email string) (string, bool, error) {
	cred, err := p.creds.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to look up credential: %w", err)
	}
	return cred.Subject, true, nil
}

// Delete removes the credential for subject
func (p *Provider) Delete(ctx context.Context, subject string) error {
	return p.creds.Delete(ctx, subject)
}
