package handler

import (
	"net/http"

	"foodconnect/internal/middleware"
	"foodconnect/internal/model"
	"foodconnect/internal/readmodel"
	"foodconnect/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the approval table and platform stats
type AdminHandler struct {
	accounts service.AccountService
	views    *readmodel.Service
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(accounts service.AccountService, views *readmodel.Service) *AdminHandler {
	return &AdminHandler{accounts: accounts, views: views}
}

func optionalQuery(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok && v != "" {
		return &v
	}
	return nil
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	filters := model.UserFilters{
		Role:   optionalQuery(c, "role"),
		Status: optionalQuery(c, "status"),
		City:   optionalQuery(c, "city"),
	}
	users, err := h.accounts.ListUsers(c.Request.Context(), middleware.UserID(c), filters)
	if err != nil {
		writeServiceError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *AdminHandler) Decide(c *gin.Context) {
	var req model.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.accounts.Decide(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Status)
	if err != nil {
		writeServiceError(c, err, "Failed to update user status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User status updated", "user": user})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.views.AdminStats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) Stream(c *gin.Context) {
	views, err := h.views.WatchAdmin(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err, "Failed to open stream")
		return
	}
	streamSnapshots(c, views)
}

// RegisterAdminRoutes registers admin-only routes
func (h *AdminHandler) RegisterAdminRoutes(rg *gin.RouterGroup, jwtAuthMW gin.HandlerFunc, adminRoleMW gin.HandlerFunc) {
	adminGroup := rg.Group("/admin")
	adminGroup.Use(jwtAuthMW, adminRoleMW)
	{
		adminGroup.GET("/users", h.ListUsers)
		adminGroup.PUT("/users/:id/status", h.Decide)
		adminGroup.GET("/stats", h.Stats)
		adminGroup.GET("/stream", h.Stream)
	}
}
