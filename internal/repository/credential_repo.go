package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type credentialRepository struct {
	db DB
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(db DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// Create stores a credential; the email column is unique
func (r *credentialRepository) Create(ctx context.Context, cred *Credential) error {
	sql := `INSERT INTO credentials (subject, email, password_hash) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, sql, cred.Subject, cred.Email, cred.PasswordHash); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// FindByEmail retrieves a credential by its (already normalized) email
func (r *credentialRepository) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	cred := &Credential{}
	sql := `SELECT subject, email, password_hash FROM credentials WHERE email = $1`
	err := r.db.QueryRow(ctx, sql, email).Scan(&cred.Subject, &cred.Email, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find credential by email: %w", err)
	}
	return cred, nil
}

// Delete removes a credential by subject
func (r *credentialRepository) Delete(ctx context.Context, subject string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE subject = $1`, subject); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
