package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"foodconnect/internal/model"
	"foodconnect/internal/repository"
)

var _ repository.UserRepository = (*userRepository)(nil)

type userRepository struct {
	db *sql.DB
}

// userColumns reads a missing legacy status as ''
const userColumns = `id, name, email, role, COALESCE(status, ''), city, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Status, &u.City, &createdAt); err != nil {
		return model.User{}, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return model.User{}, err
	}
	u.CreatedAt = t
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, status, city, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Role, user.Status, user.City, formatTime(user.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT ` + userColumns + ` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

func (r *userRepository) FindAll(ctx context.Context, filters model.UserFilters) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var conditions []string
	var args []any
	if filters.Role != nil {
		conditions = append(conditions, "role = ?")
		args = append(args, *filters.Role)
	}
	if filters.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filters.Status)
	}
	if filters.City != nil {
		conditions = append(conditions, "city = ?")
		args = append(args, *filters.City)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = ? WHERE id = ? AND role <> 'admin'`, status, id)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) BackfillStatuses(ctx context.Context) (int64, error) {
	var total int64
	stmts := []string{
		`UPDATE users SET status = 'pending' WHERE (status IS NULL OR status = '') AND role <> 'admin'`,
		`UPDATE users SET status = 'approved' WHERE role = 'admin' AND status IS NOT 'approved'`,
	}
	for _, stmt := range stmts {
		res, err := r.db.ExecContext(ctx, stmt)
		if err != nil {
			return total, fmt.Errorf("backfill user statuses: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("backfill user statuses: %w", err)
		}
		total += n
	}
	return total, nil
}
