package readmodel

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"foodconnect/internal/events"
	"foodconnect/internal/identity"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/repository/sqlite"
	"foodconnect/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos    repository.Repositories
	hub      *events.Hub
	views    *Service
	auth     service.AuthService
	accounts service.AccountService
	posts    service.FoodPostService
	admin    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "readmodel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repos := store.Repositories()
	hub := events.NewHub()
	idp := identity.NewProvider(repos.Credentials)
	f := &fixture{
		repos:    repos,
		hub:      hub,
		views:    NewService(repos.Users, repos.FoodPosts, hub),
		auth:     service.NewAuthService(repos.Users, idp, nil, hub),
		accounts: service.NewAccountService(repos.Users, idp, hub),
		posts:    service.NewFoodPostService(repos.Users, repos.FoodPosts, hub),
	}
	f.admin, _, err = f.accounts.EnsureAdmin(context.Background(), service.AdminAccount{
		Name: "Admin", Email: "admin@foodconnect.com", Password: "password123", City: "New York",
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) user(t *testing.T, name, role, city string, approve bool) *model.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), model.RegisterRequest{
		Name: name, Email: name + "@example.com", Password: "password123", Role: role, City: city,
	})
	require.NoError(t, err)
	if approve {
		u, err = f.accounts.Decide(context.Background(), f.admin.ID, u.ID, model.StatusApproved)
		require.NoError(t, err)
	}
	return u
}

func (f *fixture) post(t *testing.T, owner *model.User, item string) *model.FoodPost {
	t.Helper()
	p, err := f.posts.Create(context.Background(), owner.ID, model.CreateFoodPostRequest{
		ItemName: item, Quantity: "1 box", ExpiryTime: "2030-01-01T12:00", PickupTime: "noon",
	})
	require.NoError(t, err)
	return p
}

func ids(posts []model.FoodPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

// An NGO never sees posts from another city, whatever their status.
func TestNGOView_CityScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rx := f.user(t, "rx", model.RoleRestaurant, "X", true)
	ry := f.user(t, "ry", model.RoleRestaurant, "Y", true)
	ngoY := f.user(t, "ngoy", model.RoleNGO, "Y", true)
	otherY := f.user(t, "othery", model.RoleNGO, "Y", true)

	f.post(t, rx, "x-open")
	yOpen := f.post(t, ry, "y-open")
	yTaken := f.post(t, ry, "y-taken")
	yMine := f.post(t, ry, "y-mine")
	_, err := f.posts.Claim(ctx, otherY.ID, yTaken.ID)
	require.NoError(t, err)
	_, err = f.posts.Claim(ctx, ngoY.ID, yMine.ID)
	require.NoError(t, err)

	view, err := f.views.NGOView(ctx, ngoY.ID)
	require.NoError(t, err)
	assert.Equal(t, "Y", view.City)
	assert.Equal(t, []string{yOpen.ID}, ids(view.AvailablePosts))
	assert.Equal(t, []string{yMine.ID}, ids(view.MyClaims))
	for _, p := range append(view.AvailablePosts, view.MyClaims...) {
		assert.Equal(t, "Y", p.City)
	}
}

func TestNGOView_RequiresApproval(t *testing.T) {
	f := newFixture(t)
	pending := f.user(t, "pending", model.RoleNGO, "Y", false)

	_, err := f.views.NGOView(context.Background(), pending.ID)
	assert.ErrorIs(t, err, service.ErrNotApproved)

	_, err = f.views.NGOView(context.Background(), f.admin.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestRestaurantView(t *testing.T) {
	f := newFixture(t)
	r := f.user(t, "r1", model.RoleRestaurant, "X", true)
	other := f.user(t, "r2", model.RoleRestaurant, "X", true)

	view, err := f.views.RestaurantView(context.Background(), r.ID)
	require.NoError(t, err)
	assert.NotNil(t, view.MyPosts)
	assert.Empty(t, view.MyPosts)

	a := f.post(t, r, "first")
	f.post(t, other, "not mine")
	b := f.post(t, r, "second")

	view, err = f.views.RestaurantView(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(view.MyPosts))
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.user(t, "r1", model.RoleRestaurant, "New York", true)
	f.user(t, "r2", model.RoleRestaurant, "Los Angeles", false)
	n1 := f.user(t, "n1", model.RoleNGO, "New York", true)
	f.user(t, "n2", model.RoleNGO, "New York", false)
	f.user(t, "n3", model.RoleNGO, "Los Angeles", true)

	f.post(t, r1, "bread")
	soup := f.post(t, r1, "soup")
	pastries := f.post(t, r1, "pastries")
	_, err := f.posts.Claim(ctx, n1.ID, soup.ID)
	require.NoError(t, err)
	_, err = f.posts.Claim(ctx, n1.ID, pastries.ID)
	require.NoError(t, err)
	_, err = f.posts.MarkPickedUp(ctx, n1.ID, pastries.ID)
	require.NoError(t, err)

	stats, err := f.views.AdminStats(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRestaurants)
	assert.Equal(t, 2, stats.TotalNGOs)
	assert.Equal(t, 3, stats.FoodPosted)
	assert.Equal(t, 2, stats.FoodClaimed)
	assert.Equal(t, []model.CityStat{
		{City: "Los Angeles", Restaurants: 0, NGOs: 1},
		{City: "New York", Restaurants: 1, NGOs: 1},
	}, stats.Cities)
	assert.Len(t, stats.Users, 5)

	_, err = f.views.AdminStats(ctx, r1.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestDeriveAdminStats_Empty(t *testing.T) {
	stats := deriveAdminStats(nil, nil)
	assert.NotNil(t, stats.Cities)
	assert.NotNil(t, stats.Users)
	assert.Zero(t, stats.FoodPosted)
}

func waitFor[T any](t *testing.T, ch <-chan T, cond func(T) bool) T {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "stream closed")
			if cond(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for view")
		}
	}
}

func TestWatchNGO(t *testing.T) {
	f := newFixture(t)
	r := f.user(t, "r1", model.RoleRestaurant, "X", true)
	n := f.user(t, "n1", model.RoleNGO, "X", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := f.views.WatchNGO(ctx, n.ID)
	require.NoError(t, err)

	first := <-stream
	assert.Empty(t, first.AvailablePosts)

	p := f.post(t, r, "bread")
	waitFor(t, stream, func(v model.NGOView) bool { return len(v.AvailablePosts) == 1 })

	_, err = f.posts.Claim(context.Background(), n.ID, p.ID)
	require.NoError(t, err)
	v := waitFor(t, stream, func(v model.NGOView) bool { return len(v.MyClaims) == 1 })
	assert.Empty(t, v.AvailablePosts)

	cancel()
	for range stream {
	}
}

func TestWatchRestaurant_LatestWins(t *testing.T) {
	f := newFixture(t)
	r := f.user(t, "r1", model.RoleRestaurant, "X", true)

	stream, err := f.views.WatchRestaurant(context.Background(), r.ID)
	require.NoError(t, err)
	<-stream

	// nobody reads while these land
	for i := 0; i < 5; i++ {
		f.post(t, r, "item")
	}
	waitFor(t, stream, func(v model.RestaurantView) bool { return len(v.MyPosts) == 5 })
}

func TestWatchAdmin_SeesDecisions(t *testing.T) {
	f := newFixture(t)
	n := f.user(t, "n1", model.RoleNGO, "X", false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := f.views.WatchAdmin(ctx, f.admin.ID)
	require.NoError(t, err)

	first := <-stream
	assert.Zero(t, first.TotalNGOs)

	_, err = f.accounts.Decide(context.Background(), f.admin.ID, n.ID, model.StatusApproved)
	require.NoError(t, err)
	waitFor(t, stream, func(v model.AdminStats) bool { return v.TotalNGOs == 1 })
}

func expectClosed[T any](t *testing.T, stream <-chan T) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream stayed open")
		}
	}
}

// No post is written after the decision; the account change alone ends the stream.
func TestWatch_ClosesWhenAccessRevoked(t *testing.T) {
	f := newFixture(t)
	n := f.user(t, "n1", model.RoleNGO, "X", true)
	r := f.user(t, "r1", model.RoleRestaurant, "X", true)

	ngoStream, err := f.views.WatchNGO(context.Background(), n.ID)
	require.NoError(t, err)
	<-ngoStream
	restaurantStream, err := f.views.WatchRestaurant(context.Background(), r.ID)
	require.NoError(t, err)
	<-restaurantStream

	_, err = f.accounts.Decide(context.Background(), f.admin.ID, n.ID, model.StatusRejected)
	require.NoError(t, err)
	expectClosed(t, ngoStream)

	_, err = f.accounts.Decide(context.Background(), f.admin.ID, r.ID, model.StatusRejected)
	require.NoError(t, err)
	expectClosed(t, restaurantStream)
}

// gatedPosts holds one FindAll call after it has read, until released.
type gatedPosts struct {
	repository.FoodPostRepository

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPosts) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedPosts) FindAll(ctx context.Context, filters model.FoodPostFilters) ([]model.FoodPost, error) {
	posts, err := g.FoodPostRepository.FindAll(ctx, filters)
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	g.mu.Unlock()
	if armed {
		close(g.entered)
		<-g.release
	}
	return posts, err
}

// A post change that lands while a reload is in flight is delivered even when
// an unrelated account change is published in between.
func TestWatchNGO_PostChangeDuringReloadIsNotLost(t *testing.T) {
	f := newFixture(t)
	r := f.user(t, "r1", model.RoleRestaurant, "X", true)
	n := f.user(t, "n1", model.RoleNGO, "X", true)
	other := f.user(t, "n2", model.RoleNGO, "X", false)

	gate := &gatedPosts{FoodPostRepository: f.repos.FoodPosts}
	views := NewService(f.repos.Users, gate, f.hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := views.WatchNGO(ctx, n.ID)
	require.NoError(t, err)
	<-stream

	gate.arm()
	f.post(t, r, "first")
	select {
	case <-gate.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reloaded")
	}

	_, err = f.accounts.Decide(context.Background(), f.admin.ID, other.ID, model.StatusApproved)
	require.NoError(t, err)
	f.post(t, r, "second")
	close(gate.release)

	waitFor(t, stream, func(v model.NGOView) bool { return len(v.AvailablePosts) == 2 })
}

func TestWatch_InitialLoadError(t *testing.T) {
	f := newFixture(t)
	_, err := f.views.WatchRestaurant(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrForbidden)
}
