package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"foodconnect/internal/model"

	"github.com/jackc/pgx/v5"
)

type foodPostRepository struct {
	db DB
}

// NewFoodPostRepository creates a new FoodPostRepository
func NewFoodPostRepository(db DB) FoodPostRepository {
	return &foodPostRepository{db: db}
}

const foodPostColumns = `id, restaurant_id, item_name, quantity, expiry_time, pickup_time, status, claimed_by_ngo_id, city, created_at`

func scanFoodPost(row pgx.Row, p *model.FoodPost) error {
	return row.Scan(&p.ID, &p.RestaurantID, &p.ItemName, &p.Quantity, &p.ExpiryTime,
		&p.PickupTime, &p.Status, &p.ClaimedByNgoID, &p.City, &p.CreatedAt)
}

// Create inserts a new food post into the database
func (r *foodPostRepository) Create(ctx context.Context, p *model.FoodPost) error {
	sql := `INSERT INTO food_posts (id, restaurant_id, item_name, quantity, expiry_time, pickup_time, status, claimed_by_ngo_id, city, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, sql, p.ID, p.RestaurantID, p.ItemName, p.Quantity, p.ExpiryTime,
		p.PickupTime, p.Status, p.ClaimedByNgoID, p.City, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create food post: %w", err)
	}
	return nil
}

// FindByID retrieves a food post by its ID
func (r *foodPostRepository) FindByID(ctx context.Context, id string) (*model.FoodPost, error) {
	p := &model.FoodPost{}
	sql := `SELECT ` + foodPostColumns + ` FROM food_posts WHERE id = $1`
	if err := scanFoodPost(r.db.QueryRow(ctx, sql, id), p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find food post by ID: %w", err)
	}
	return p, nil
}

// FindAll retrieves food posts matching the optional filters in creation order
func (r *foodPostRepository) FindAll(ctx context.Context, filters model.FoodPostFilters) ([]model.FoodPost, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + foodPostColumns + ` FROM food_posts`)

	args := []interface{}{}
	var conditions []string
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("city", filters.City)
	add("status", filters.Status)
	add("restaurant_id", filters.RestaurantID)
	add("claimed_by_ngo_id", filters.ClaimedByNgoID)

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query food posts: %w", err)
	}
	defer rows.Close()

	var posts []model.FoodPost
	for rows.Next() {
		var p model.FoodPost
		if err := scanFoodPost(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan food post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food post rows: %w", err)
	}
	return posts, nil
}

// Claim assigns an available post to an NGO in a single conditional update
func (r *foodPostRepository) Claim(ctx context.Context, id string, ngoID string) error {
	sql := `UPDATE food_posts SET status = $1, claimed_by_ngo_id = $2 WHERE id = $3 AND status = $4`
	cmdTag, err := r.db.Exec(ctx, sql, model.PostStatusClaimed, ngoID, id, model.PostStatusAvailable)
	if err != nil {
		return fmt.Errorf("failed to claim food post: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.conditionFailure(ctx, id)
	}
	return nil
}

// MarkPickedUp completes a claimed post in a single conditional update
func (r *foodPostRepository) MarkPickedUp(ctx context.Context, id string) error {
	sql := `UPDATE food_posts SET status = $1 WHERE id = $2 AND status = $3`
	cmdTag, err := r.db.Exec(ctx, sql, model.PostStatusPickedUp, id, model.PostStatusClaimed)
	if err != nil {
		return fmt.Errorf("failed to mark food post picked up: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.conditionFailure(ctx, id)
	}
	return nil
}

// conditionFailure tells a missing row apart from a row in the wrong state
func (r *foodPostRepository) conditionFailure(ctx context.Context, id string) error {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM food_posts WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read food post status: %w", err)
	}
	return fmt.Errorf("%w: status is %q", ErrConditionFailed, status)
}
