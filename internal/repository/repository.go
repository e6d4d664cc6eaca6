package repository

import (
	"context"
	"errors"

	"foodconnect/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConditionFailed indicates a conditional write matched no row in the expected state.
	ErrConditionFailed = errors.New("conditional write precondition failed")
)

// DB is the subset of pgxpool.Pool used by the repositories
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository defines operations for user profiles
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindAll(ctx context.Context, filters model.UserFilters) ([]model.User, error)
	// UpdateStatus overwrites the status of a non-admin user unconditionally.
	UpdateStatus(ctx context.Context, id string, status string) error
	BackfillStatuses(ctx context.Context) (int64, error)
}

// FoodPostRepository defines operations for food posts.
// Status changes are conditional on the stored status.
type FoodPostRepository interface {
	Create(ctx context.Context, post *model.FoodPost) error
	FindByID(ctx context.Context, id string) (*model.FoodPost, error)
	FindAll(ctx context.Context, filters model.FoodPostFilters) ([]model.FoodPost, error)
	// Claim sets status Claimed and the claimer iff the stored status is Available.
	Claim(ctx context.Context, id string, ngoID string) error
	// MarkPickedUp sets status Picked up iff the stored status is Claimed.
	MarkPickedUp(ctx context.Context, id string) error
}

// Credential is an identity record linked 1:1 to a user by Subject
type Credential struct {
	Subject      string
	Email        string
	PasswordHash string
}

// CredentialRepository stores identity credentials
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	Delete(ctx context.Context, subject string) error
}

// Repositories bundles the stores a process works with
type Repositories struct {
	Users       UserRepository
	FoodPosts   FoodPostRepository
	Credentials CredentialRepository
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NewPostgresRepositories wires every repository to one pgx connection pool
func NewPostgresRepositories(db DB) Repositories {
	return Repositories{
		Users:       NewUserRepository(db),
		FoodPosts:   NewFoodPostRepository(db),
		Credentials: NewCredentialRepository(db),
	}
}
