package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodconnect/internal/events"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/statemachine"

	"github.com/google/uuid"
)

// expiryLayouts are tried in order; the last two are what an HTML
// datetime-local input sends and are read as UTC.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseExpiry parses an expiry timestamp
func ParseExpiry(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, validationError("expiry_time %q must be RFC 3339 or YYYY-MM-DDTHH:MM", value)
}

// FoodPostService owns every status change on food posts
type FoodPostService interface {
	Create(ctx context.Context, restaurantID string, req model.CreateFoodPostRequest) (*model.FoodPost, error)
	Claim(ctx context.Context, ngoID, postID string) (*model.FoodPost, error)
	MarkPickedUp(ctx context.Context, actorID, postID string) (*model.FoodPost, error)
}

type foodPostService struct {
	users repository.UserRepository
	posts repository.FoodPostRepository
	hub   *events.Hub
	now   func() time.Time
}

// NewFoodPostService creates a new FoodPostService
func NewFoodPostService(users repository.UserRepository, posts repository.FoodPostRepository, hub *events.Hub) FoodPostService {
	return &foodPostService{users: users, posts: posts, hub: hub, now: time.Now}
}

// Create lists surplus food for an approved restaurant
func (s *foodPostService) Create(ctx context.Context, restaurantID string, req model.CreateFoodPostRequest) (*model.FoodPost, error) {
	actor, err := AuthorizeActor(ctx, s.users, restaurantID, model.RoleRestaurant)
	if err != nil {
		return nil, err
	}

	itemName := strings.TrimSpace(req.ItemName)
	quantity := strings.TrimSpace(req.Quantity)
	pickupTime := strings.TrimSpace(req.PickupTime)
	switch {
	case itemName == "":
		return nil, validationError("item_name is required")
	case quantity == "":
		return nil, validationError("quantity is required")
	case pickupTime == "":
		return nil, validationError("pickup_time is required")
	case strings.TrimSpace(req.ExpiryTime) == "":
		return nil, validationError("expiry_time is required")
	}
	expiry, err := ParseExpiry(req.ExpiryTime)
	if err != nil {
		return nil, err
	}

	post := &model.FoodPost{
		ID:           uuid.Must(uuid.NewV7()).String(),
		RestaurantID: actor.ID,
		ItemName:     itemName,
		Quantity:     quantity,
		ExpiryTime:   expiry,
		PickupTime:   pickupTime,
		Status:       model.PostStatusAvailable,
		City:         actor.City,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create food post: %w", err)
	}

	s.hub.Publish(events.Event{Kind: events.PostChanged, ID: post.ID})
	return post, nil
}

func (s *foodPostService) loadPost(ctx context.Context, id string) (*model.FoodPost, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load food post: %w", err)
	}
	return post, nil
}

// Claim reserves an available post for an approved NGO in the same city.
// Of several concurrent claims exactly one wins; the rest get ErrAlreadyClaimed.
func (s *foodPostService) Claim(ctx context.Context, ngoID, postID string) (*model.FoodPost, error) {
	actor, err := AuthorizeActor(ctx, s.users, ngoID, model.RoleNGO)
	if err != nil {
		return nil, err
	}

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.City != actor.City {
		return nil, fmt.Errorf("%w: post is in %s", ErrForbidden, post.City)
	}
	if err := statemachine.CanTransition(post.Status, model.PostStatusClaimed, statemachine.ActorNGO); err != nil {
		return nil, ErrAlreadyClaimed
	}

	if err := s.posts.Claim(ctx, postID, actor.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConditionFailed):
			return nil, ErrAlreadyClaimed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim food post: %w", err)
	}

	post.Status = model.PostStatusClaimed
	post.ClaimedByNgoID = &actor.ID
	s.hub.Publish(events.Event{Kind: events.PostChanged, ID: post.ID})
	return post, nil
}

// MarkPickedUp completes a claimed post. Only the owner or the claimer may do it.
func (s *foodPostService) MarkPickedUp(ctx context.Context, actorID, postID string) (*model.FoodPost, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}

	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	var role string
	switch {
	case actor.Role == model.RoleRestaurant && post.RestaurantID == actor.ID:
		role = statemachine.ActorRestaurant
	case actor.Role == model.RoleNGO && post.ClaimedByNgoID != nil && *post.ClaimedByNgoID == actor.ID:
		role = statemachine.ActorNGO
	default:
		return nil, fmt.Errorf("%w: only the owner or the claimer can confirm pickup", ErrForbidden)
	}
	if !actor.IsApproved() {
		return nil, &NotApprovedError{Status: actor.Status}
	}

	if err := statemachine.CanTransition(post.Status, model.PostStatusPickedUp, role); err != nil {
		return nil, err
	}
	if err := s.posts.MarkPickedUp(ctx, postID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConditionFailed):
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark food post picked up: %w", err)
	}

	post.Status = model.PostStatusPickedUp
	s.hub.Publish(events.Event{Kind: events.PostChanged, ID: post.ID})
	return post, nil
}
