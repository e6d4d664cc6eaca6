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

var _ repository.FoodPostRepository = (*foodPostRepository)(nil)

type foodPostRepository struct {
	db *sql.DB
}

const foodPostColumns = `id, restaurant_id, item_name, quantity, expiry_time, pickup_time, status, claimed_by_ngo_id, city, created_at`

func scanFoodPost(row rowScanner) (model.FoodPost, error) {
	var p model.FoodPost
	var expiry, createdAt string
	var claimedBy sql.NullString
	if err := row.Scan(&p.ID, &p.RestaurantID, &p.ItemName, &p.Quantity, &expiry,
		&p.PickupTime, &p.Status, &claimedBy, &p.City, &createdAt); err != nil {
		return model.FoodPost{}, err
	}
	var err error
	if p.ExpiryTime, err = parseTime(expiry); err != nil {
		return model.FoodPost{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.FoodPost{}, err
	}
	if claimedBy.Valid {
		id := claimedBy.String
		p.ClaimedByNgoID = &id
	}
	return p, nil
}

func (r *foodPostRepository) Create(ctx context.Context, p *model.FoodPost) error {
	var claimedBy sql.NullString
	if p.ClaimedByNgoID != nil {
		claimedBy = sql.NullString{String: *p.ClaimedByNgoID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO food_posts (`+foodPostColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RestaurantID, p.ItemName, p.Quantity, formatTime(p.ExpiryTime),
		p.PickupTime, p.Status, claimedBy, p.City, formatTime(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("create food post: %w", err)
	}
	return nil
}

func (r *foodPostRepository) FindByID(ctx context.Context, id string) (*model.FoodPost, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+foodPostColumns+` FROM food_posts WHERE id = ?`, id)
	p, err := scanFoodPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find food post by id: %w", err)
	}
	return &p, nil
}

func (r *foodPostRepository) FindAll(ctx context.Context, filters model.FoodPostFilters) ([]model.FoodPost, error) {
	query := `SELECT ` + foodPostColumns + ` FROM food_posts`
	var conditions []string
	var args []any
	add := func(column string, value *string) {
		if value != nil {
			conditions = append(conditions, column+" = ?")
			args = append(args, *value)
		}
	}
	add("city", filters.City)
	add("status", filters.Status)
	add("restaurant_id", filters.RestaurantID)
	add("claimed_by_ngo_id", filters.ClaimedByNgoID)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query food posts: %w", err)
	}
	defer rows.Close()

	var posts []model.FoodPost
	for rows.Next() {
		p, err := scanFoodPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate food posts: %w", err)
	}
	return posts, nil
}

func (r *foodPostRepository) Claim(ctx context.Context, id string, ngoID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE food_posts SET status = ?, claimed_by_ngo_id = ? WHERE id = ? AND status = ?`,
		model.PostStatusClaimed, ngoID, id, model.PostStatusAvailable)
	if err != nil {
		return fmt.Errorf("claim food post: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *foodPostRepository) MarkPickedUp(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE food_posts SET status = ? WHERE id = ? AND status = ?`,
		model.PostStatusPickedUp, id, model.PostStatusClaimed)
	if err != nil {
		return fmt.Errorf("mark food post picked up: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *foodPostRepository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM food_posts WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("read food post status: %w", err)
	}
	return fmt.Errorf("%w: status is %q", repository.ErrConditionFailed, status)
}
