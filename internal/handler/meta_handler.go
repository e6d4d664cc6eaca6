package handler

import (
	"context"
	"net/http"

	"foodconnect/internal/statemachine"

	"github.com/gin-gonic/gin"
)

// MetaHandler serves public endpoints that need no account
type MetaHandler struct {
	ping func(context.Context) error
}

// NewMetaHandler creates a MetaHandler; ping checks the store
func NewMetaHandler(ping func(context.Context) error) *MetaHandler {
	return &MetaHandler{ping: ping}
}

func (h *MetaHandler) StateMachine(c *gin.Context) {
	c.JSON(http.StatusOK, statemachine.Describe())
}

func (h *MetaHandler) Health(c *gin.Context) {
	if err := h.ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
}

// RegisterMetaRoutes registers the state machine under the API group and health at the root
func (h *MetaHandler) RegisterMetaRoutes(router *gin.Engine, rg *gin.RouterGroup) {
	rg.GET("/state-machine", h.StateMachine)
	router.GET("/health", h.Health)
}
