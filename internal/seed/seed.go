// Package seed loads demo accounts and food posts from a YAML fixture.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"foodconnect/internal/identity"
	"foodconnect/internal/model"
	"foodconnect/internal/repository"
	"foodconnect/internal/service"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is the document layout of a seed file
type Fixture struct {
	Users []User `yaml:"users"`
	Posts []Post `yaml:"posts"`
}

type User struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Status   string `yaml:"status"`
	City     string `yaml:"city"`
}

// Post references its restaurant and claimer by email.
// ExpiresIn is a Go duration relative to load time and may be negative.
type Post struct {
	Restaurant string `yaml:"restaurant"`
	ItemName   string `yaml:"item_name"`
	Quantity   string `yaml:"quantity"`
	ExpiresIn  string `yaml:"expires_in"`
	PickupTime string `yaml:"pickup_time"`
	Status     string `yaml:"status"`
	ClaimedBy  string `yaml:"claimed_by"`
}

// Load decodes a fixture, rejecting unknown fields
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to decode seed fixture: %w", err)
	}
	return &f, nil
}

// LoadFile reads a fixture from disk
func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer file.Close()
	return Load(file)
}

// Default returns the built-in demo fixture
func Default() (*Fixture, error) {
	return Load(bytes.NewReader(defaultFixture))
}

// Result counts what Apply wrote
type Result struct {
	UsersCreated int
	UsersSkipped int
	PostsCreated int
}

// Seeder applies fixtures. Accounts that already exist are left untouched,
// and posts are only written for restaurants created in the same run.
type Seeder struct {
	repos    repository.Repositories
	identity *identity.Provider
	accounts service.AccountService
	now      func() time.Time
}

// NewSeeder creates a Seeder over repos
func NewSeeder(repos repository.Repositories, accounts service.AccountService) *Seeder {
	return &Seeder{
		repos:    repos,
		identity: identity.NewProvider(repos.Credentials),
		accounts: accounts,
		now:      time.Now,
	}
}

// Apply writes the fixture
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	ids := map[string]string{}    // normalized email -> user id
	fresh := map[string]bool{}    // users created by this run
	cities := map[string]string{} // user id -> city
	base := s.now().UTC()

	for i, u := range f.Users {
		email := identity.NormalizeEmail(u.Email)
		if u.Role == model.RoleAdmin {
			admin, created, err := s.accounts.EnsureAdmin(ctx, service.AdminAccount{Name: u.Name, Email: u.Email, Password: u.Password, City: u.City})
			if err != nil {
				return res, fmt.Errorf("seed admin %s: %w", u.Email, err)
			}
			ids[email], cities[admin.ID] = admin.ID, admin.City
			count(res, created)
			continue
		}

		subject, found, err := s.identity.Lookup(ctx, email)
		if err != nil {
			return res, err
		}
		if found {
			existing, err := s.repos.Users.FindByID(ctx, subject)
			if err != nil {
				return res, fmt.Errorf("seed user %s: %w", u.Email, err)
			}
			ids[email], cities[subject] = subject, existing.City
			count(res, false)
			continue
		}

		subject, err = s.identity.CreateCredential(ctx, email, u.Password)
		if err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		// staggered timestamps keep fixture order stable in listings
		user := &model.User{
			ID:        subject,
			Name:      u.Name,
			Email:     email,
			Role:      u.Role,
			Status:    u.Status,
			City:      u.City,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.repos.Users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		ids[email], cities[subject], fresh[subject] = subject, u.City, true
		count(res, true)
	}

	for i, p := range f.Posts {
		restaurantID, ok := ids[identity.NormalizeEmail(p.Restaurant)]
		if !ok {
			return res, fmt.Errorf("post %d: restaurant %s is not in the fixture", i, p.Restaurant)
		}
		if !fresh[restaurantID] {
			continue
		}
		expiresIn, _ := time.ParseDuration(p.ExpiresIn)
		post := &model.FoodPost{
			ID:           uuid.Must(uuid.NewV7()).String(),
			RestaurantID: restaurantID,
			ItemName:     p.ItemName,
			Quantity:     p.Quantity,
			ExpiryTime:   base.Add(expiresIn),
			PickupTime:   p.PickupTime,
			Status:       p.Status,
			City:         cities[restaurantID],
			CreatedAt:    base.Add(time.Duration(i) * time.Millisecond),
		}
		if p.ClaimedBy != "" {
			ngoID, ok := ids[identity.NormalizeEmail(p.ClaimedBy)]
			if !ok {
				return res, fmt.Errorf("post %d: claimer %s is not in the fixture", i, p.ClaimedBy)
			}
			post.ClaimedByNgoID = &ngoID
		}
		if err := s.repos.FoodPosts.Create(ctx, post); err != nil {
			return res, fmt.Errorf("seed post %q: %w", p.ItemName, err)
		}
		res.PostsCreated++
	}

	log.Printf("Seed applied: %d users created, %d skipped, %d posts created", res.UsersCreated, res.UsersSkipped, res.PostsCreated)
	return res, nil
}

func count(res *Result, created bool) {
	if created {
		res.UsersCreated++
	} else {
		res.UsersSkipped++
	}
}
