package model

// NGOView is the dashboard of an NGO
type NGOView struct {
	City           string     `json:"city"`
	AvailablePosts []FoodPost `json:"available_posts"`
	MyClaims       []FoodPost `json:"my_claims"`
}

// RestaurantView is the dashboard of a restaurant, posts in creation order
type RestaurantView struct {
	MyPosts []FoodPost `json:"my_posts"`
}

// AdminStats represents the aggregate counters shown to admins
type AdminStats struct {
	TotalRestaurants int        `json:"total_restaurants"` // approved only
	TotalNGOs        int        `json:"total_ngos"`        // approved only
	FoodPosted       int        `json:"food_posted"`
	FoodClaimed      int        `json:"food_claimed"` // Claimed or Picked up
	Cities           []CityStat `json:"cities"`
	Users            []User     `json:"users"` // non-admin accounts
}

// CityStat counts approved accounts per city
type CityStat struct {
	City        string `json:"city"`
	Restaurants int    `json:"restaurants"`
	NGOs        int    `json:"ngos"`
}
