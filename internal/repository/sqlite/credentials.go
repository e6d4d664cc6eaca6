package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodconnect/internal/repository"
)

var _ repository.CredentialRepository = (*credentialRepository)(nil)

type credentialRepository struct {
	db *sql.DB
}

func (r *credentialRepository) Create(ctx context.Context, cred *repository.Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (subject, email, password_hash) VALUES (?, ?, ?)`,
		cred.Subject, cred.Email, cred.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (r *credentialRepository) FindByEmail(ctx context.Context, email string) (*repository.Credential, error) {
	cred := &repository.Credential{}
	err := r.db.QueryRowContext(ctx,
		`SELECT subject, email, password_hash FROM credentials WHERE email = ?`, email).
		Scan(&cred.Subject, &cred.Email, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find credential by email: %w", err)
	}
	return cred, nil
}

func (r *credentialRepository) Delete(ctx context.Context, subject string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE subject = ?`, subject); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
