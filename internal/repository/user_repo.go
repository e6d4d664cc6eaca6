package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodconnect/internal/model"

	"github.com/jackc/pgx/v5"
)

type userRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) UserRepository {
	return &userRepository{db: db}
}

// status is read through COALESCE so rows from before statuses were enforced still load
const userColumns = `id, name, email, role, COALESCE(status, ''), city, created_at`

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	sql := `INSERT INTO users (id, name, email, role, status, city, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, sql, user.ID, user.Name, user.Email, user.Role, user.Status, user.City, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by their ID
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	sql := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, sql, id).Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.Status, &user.City, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindAll retrieves users matching the optional filters, oldest first
func (r *userRepository) FindAll(ctx context.Context, filters model.UserFilters) ([]model.User, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + userColumns + ` FROM users`)

	args := []interface{}{}
	var conditions []string
	if filters.Role != nil {
		args = append(args, *filters.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}
	if filters.Status != nil {
		args = append(args, *filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filters.City != nil {
		args = append(args, *filters.City)
		conditions = append(conditions, fmt.Sprintf("city = $%d", len(args)))
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.City, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateStatus sets the status of a non-admin user
func (r *userRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	sql := `UPDATE users SET status = $1 WHERE id = $2 AND role <> 'admin'`
	cmdTag, err := r.db.Exec(ctx, sql, status, id)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillStatuses gives status-less accounts a status and re-approves admins
func (r *userRepository) BackfillStatuses(ctx context.Context) (int64, error) {
	var total int64
	stmts := []string{
		`UPDATE users SET status = 'pending' WHERE (status IS NULL OR status = '') AND role <> 'admin'`,
		`UPDATE users SET status = 'approved' WHERE role = 'admin' AND status IS DISTINCT FROM 'approved'`,
	}
	for _, stmt := range stmts {
		cmdTag, err := r.db.Exec(ctx, stmt)
		if err != nil {
			return total, fmt.Errorf("failed to backfill user statuses: %w", err)
		}
		total += cmdTag.RowsAffected()
	}
	return total, nil
}
