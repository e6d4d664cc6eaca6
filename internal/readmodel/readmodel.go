// Package readmodel derives the per-role dashboard views from the store and
// keeps live subscribers up to date.
package readmodel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"foodconnect/internal/events"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/service"
)

// Service builds dashboard views. It never writes.
type Service struct {
	users repository.UserRepository
	posts repository.FoodPostRepository
	hub   *events.Hub
}

// NewService creates a read model over the given repositories
func NewService(users repository.UserRepository, posts repository.FoodPostRepository, hub *events.Hub) *Service {
	return &Service{users: users, posts: posts, hub: hub}
}

// NGOView returns available posts in the NGO's city and the NGO's own claims
func (s *Service) NGOView(ctx context.Context, ngoID string) (*model.NGOView, error) {
	actor, err := service.AuthorizeActor(ctx, s.users, ngoID, model.RoleNGO)
	if err != nil {
		return nil, err
	}

	available := model.PostStatusAvailable
	open, err := s.posts.FindAll(ctx, model.FoodPostFilters{City: &actor.City, Status: &available})
	if err != nil {
		return nil, fmt.Errorf("failed to load available posts: %w", err)
	}
	claims, err := s.posts.FindAll(ctx, model.FoodPostFilters{ClaimedByNgoID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load claims: %w", err)
	}

	return &model.NGOView{
		City:           actor.City,
		AvailablePosts: nonNil(open),
		MyClaims:       nonNil(claims),
	}, nil
}

// RestaurantView returns the restaurant's own posts in creation order
func (s *Service) RestaurantView(ctx context.Context, restaurantID string) (*model.RestaurantView, error) {
	actor, err := service.AuthorizeActor(ctx, s.users, restaurantID, model.RoleRestaurant)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.FindAll(ctx, model.FoodPostFilters{RestaurantID: &actor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurant posts: %w", err)
	}
	return &model.RestaurantView{MyPosts: nonNil(posts)}, nil
}

// AdminStats returns the platform counters and the approval table
func (s *Service) AdminStats(ctx context.Context, adminID string) (*model.AdminStats, error) {
	if _, err := service.AuthorizeActor(ctx, s.users, adminID, model.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.users.FindAll(ctx, model.UserFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	posts, err := s.posts.FindAll(ctx, model.FoodPostFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	stats := deriveAdminStats(users, posts)
	return &stats, nil
}

func deriveAdminStats(users []model.User, posts []model.FoodPost) model.AdminStats {
	stats := model.AdminStats{
		FoodPosted: len(posts),
		Cities:     []model.CityStat{},
		Users:      []model.User{},
	}
	byCity := map[string]*model.CityStat{}
	for _, u := range users {
		if u.Role == model.RoleAdmin {
			continue
		}
		stats.Users = append(stats.Users, u)
		if !u.IsApproved() {
			continue
		}
		cs, ok := byCity[u.City]
		if !ok {
			cs = &model.CityStat{City: u.City}
			byCity[u.City] = cs
		}
		switch u.Role {
		case model.RoleRestaurant:
			stats.TotalRestaurants++
			cs.Restaurants++
		case model.RoleNGO:
			stats.TotalNGOs++
			cs.NGOs++
		}
	}
	for _, cs := range byCity {
		stats.Cities = append(stats.Cities, *cs)
	}
	sort.Slice(stats.Cities, func(i, j int) bool { return stats.Cities[i].City < stats.Cities[j].City })

	for _, p := range posts {
		if p.Status == model.PostStatusClaimed || p.Status == model.PostStatusPickedUp {
			stats.FoodClaimed++
		}
	}
	return stats
}

func nonNil(posts []model.FoodPost) []model.FoodPost {
	if posts == nil {
		return []model.FoodPost{}
	}
	return posts
}

// WatchNGO streams the NGO view, starting with the current one
func (s *Service) WatchNGO(ctx context.Context, ngoID string) (<-chan model.NGOView, error) {
	return watch(ctx, s.hub, postsOrSelf(ngoID), func(ctx context.Context) (model.NGOView, error) {
		v, err := s.NGOView(ctx, ngoID)
		if err != nil {
			return model.NGOView{}, err
		}
		return *v, nil
	})
}

// WatchRestaurant streams the restaurant view, starting with the current one
func (s *Service) WatchRestaurant(ctx context.Context, restaurantID string) (<-chan model.RestaurantView, error) {
	return watch(ctx, s.hub, postsOrSelf(restaurantID), func(ctx context.Context) (model.RestaurantView, error) {
		v, err := s.RestaurantView(ctx, restaurantID)
		if err != nil {
			return model.RestaurantView{}, err
		}
		return *v, nil
	})
}

// WatchAdmin streams admin stats on any user or post change
func (s *Service) WatchAdmin(ctx context.Context, adminID string) (<-chan model.AdminStats, error) {
	return watch(ctx, s.hub, nil, func(ctx context.Context) (model.AdminStats, error) {
		v, err := s.AdminStats(ctx, adminID)
		if err != nil {
			return model.AdminStats{}, err
		}
		return *v, nil
	})
}

// postsOrSelf matches every post change and changes to the watching account,
// so a revoked account is noticed without waiting for post traffic.
func postsOrSelf(actorID string) func(events.Event) bool {
	return func(e events.Event) bool {
		return e.Kind == events.PostChanged || (e.Kind == events.UserChanged && e.ID == actorID)
	}
}

// watch subscribes before the first load so no change between the snapshot
// and the subscription is missed. The returned channel holds at most one
// pending view; a newer view replaces an unread one. It is closed when ctx
// ends or the actor loses access.
func watch[T any](ctx context.Context, hub *events.Hub, match func(events.Event) bool, load func(context.Context) (T, error)) (<-chan T, error) {
	changes, unsubscribe := hub.Subscribe(match)

	first, err := load(ctx)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan T, 1)
	out <- first

	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				v, err := load(ctx)
				if err != nil {
					if ctx.Err() != nil || errors.Is(err, service.ErrForbidden) {
						return
					}
					log.Printf("Error refreshing view: %v", err)
					continue
				}
				offer(out, v)
			}
		}
	}()
	return out, nil
}

// offer replaces any unread value with v
func offer[T any](out chan T, v T) {
	for {
		select {
		case out <- v:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
