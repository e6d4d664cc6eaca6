package model

import "time"

const (
	PostStatusAvailable = "Available"
	PostStatusClaimed   = "Claimed"
	PostStatusPickedUp  = "Picked up"
)

// FoodPost represents a surplus food listing owned by a restaurant
type FoodPost struct {
	ID             string    `json:"id"`
	RestaurantID   string    `json:"restaurant_id"`
	ItemName       string    `json:"item_name"`
	Quantity       string    `json:"quantity"`
	ExpiryTime     time.Time `json:"expiry_time"`
	PickupTime     string    `json:"pickup_time"`
	Status         string    `json:"status"`
	ClaimedByNgoID *string   `json:"claimed_by_ngo_id"` // nil until claimed
	City           string    `json:"city"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateFoodPostRequest is used for listing new surplus food.
// ExpiryTime stays a string so the service can report parse failures.
type CreateFoodPostRequest struct {
	ItemName   string `json:"item_name"`
	Quantity   string `json:"quantity"`
	ExpiryTime string `json:"expiry_time"`
	PickupTime string `json:"pickup_time"`
}

// FoodPostFilters contains equality filters for post listings
type FoodPostFilters struct {
	City           *string
	Status         *string
	RestaurantID   *string
	ClaimedByNgoID *string
}
