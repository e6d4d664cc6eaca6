package handler

import (
	"net/http"

	"foodconnect/internal/middleware"
	"foodconnect/internal/model"
	"foodconnect/internal/readmodel"
	"foodconnect/internal/service"

	"github.com/gin-gonic/gin"
)

// FoodPostHandler serves the restaurant and NGO dashboards
type FoodPostHandler struct {
	posts service.FoodPostService
	views *readmodel.Service
}

// NewFoodPostHandler creates a new FoodPostHandler
func NewFoodPostHandler(posts service.FoodPostService, views *readmodel.Service) *FoodPostHandler {
	return &FoodPostHandler{posts: posts, views: views}
}

func (h *FoodPostHandler) CreatePost(c *gin.Context) {
	var req model.CreateFoodPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeServiceError(c, err, "Failed to create food post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *FoodPostHandler) RestaurantPosts(c *gin.Context) {
	view, err := h.views.RestaurantView(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to load posts")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *FoodPostHandler) RestaurantStream(c *gin.Context) {
	views, err := h.views.WatchRestaurant(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to open stream")
		return
	}
	streamSnapshots(c, views)
}

func (h *FoodPostHandler) NGOPosts(c *gin.Context) {
	view, err := h.views.NGOView(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to load posts")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *FoodPostHandler) Claim(c *gin.Context) {
	post, err := h.posts.Claim(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "Failed to claim food post")
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *FoodPostHandler) NGOStream(c *gin.Context) {
	views, err := h.views.WatchNGO(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to open stream")
		return
	}
	streamSnapshots(c, views)
}

func (h *FoodPostHandler) MarkPickedUp(c *gin.Context) {
	post, err := h.posts.MarkPickedUp(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err, "Failed to confirm pickup")
		return
	}
	c.JSON(http.StatusOK, post)
}

// RegisterFoodPostRoutes registers the restaurant, NGO and pickup routes
func (h *FoodPostHandler) RegisterFoodPostRoutes(rg *gin.RouterGroup, jwtAuthMW gin.HandlerFunc) {
	restaurantGroup := rg.Group("/restaurant")
	restaurantGroup.Use(jwtAuthMW, middleware.RestaurantMiddleware())
	{
		restaurantGroup.POST("/posts", h.CreatePost)
		restaurantGroup.GET("/posts", h.RestaurantPosts)
		restaurantGroup.GET("/stream", h.RestaurantStream)
	}

	ngoGroup := rg.Group("/ngo")
	ngoGroup.Use(jwtAuthMW, middleware.NGOMiddleware())
	{
		ngoGroup.GET("/posts", h.NGOPosts)
		ngoGroup.POST("/posts/:id/claim", h.Claim)
		ngoGroup.GET("/stream", h.NGOStream)
	}

	rg.PUT("/posts/:id/pickup", jwtAuthMW, middleware.PartnerMiddleware(), h.MarkPickedUp)
}
