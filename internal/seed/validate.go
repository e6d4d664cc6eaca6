package seed

import (
	"fmt"
	"time"

	"foodconnect/internal/identity"
	"foodconnect/internal/model"
)

// Validate checks the fixture is self-consistent before anything is written
func (f *Fixture) Validate() error {
	byEmail := map[string]User{}
	for i, u := range f.Users {
		if u.Name == "" || u.Email == "" || u.City == "" || u.Password == "" {
			return fmt.Errorf("user %d: name, email, password and city are required", i)
		}
		switch u.Role {
		case model.RoleAdmin:
			if u.Status != "" && u.Status != model.StatusApproved {
				return fmt.Errorf("user %s: admins are always approved", u.Email)
			}
		case model.RoleRestaurant, model.RoleNGO:
			switch u.Status {
			case model.StatusPending, model.StatusApproved, model.StatusRejected:
			default:
				return fmt.Errorf("user %s: unknown status %q", u.Email, u.Status)
			}
		default:
			return fmt.Errorf("user %s: unknown role %q", u.Email, u.Role)
		}
		email := identity.NormalizeEmail(u.Email)
		if _, dup := byEmail[email]; dup {
			return fmt.Errorf("user %s: listed twice", u.Email)
		}
		byEmail[email] = u
	}

	for i, p := range f.Posts {
		owner, ok := byEmail[identity.NormalizeEmail(p.Restaurant)]
		if !ok || owner.Role != model.RoleRestaurant {
			return fmt.Errorf("post %d: %q is not a restaurant in the fixture", i, p.Restaurant)
		}
		if p.ItemName == "" || p.Quantity == "" || p.PickupTime == "" {
			return fmt.Errorf("post %d: item_name, quantity and pickup_time are required", i)
		}
		if _, err := time.ParseDuration(p.ExpiresIn); err != nil {
			return fmt.Errorf("post %d: expires_in: %w", i, err)
		}
		switch p.Status {
		case model.PostStatusAvailable:
			if p.ClaimedBy != "" {
				return fmt.Errorf("post %d: available posts cannot have a claimer", i)
			}
		case model.PostStatusClaimed, model.PostStatusPickedUp:
			claimer, ok := byEmail[identity.NormalizeEmail(p.ClaimedBy)]
			if !ok || claimer.Role != model.RoleNGO {
				return fmt.Errorf("post %d: %s posts need an ngo claimer from the fixture", i, p.Status)
			}
			if claimer.City != owner.City {
				return fmt.Errorf("post %d: claimer %s is not in %s", i, p.ClaimedBy, owner.City)
			}
		default:
			return fmt.Errorf("post %d: unknown status %q", i, p.Status)
		}
	}
	return nil
}
