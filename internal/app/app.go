package app

import (
	"context"

	"foodconnect/internal/events"
	"foodconnect/internal/handler"
	"foodconnect/internal/identity"
	"foodconnect/internal/middleware"
	"foodconnect/internal/readmodel"
	"foodconnect/internal/repository"
	"foodconnect/internal/service"
	"foodconnect/internal/utils"

	"github.com/gin-gonic/gin"
)

// App holds the services of one process
type App struct {
	Hub      *events.Hub
	JWT      *utils.JWTUtil
	Auth     service.AuthService
	Accounts service.AccountService
	Posts    service.FoodPostService
	Views    *readmodel.Service

	ping func(context.Context) error
}

// New builds the services over repos
func New(repos repository.Repositories, jwtUtil *utils.JWTUtil, ping func(context.Context) error) *App {
	hub := events.NewHub()
	idp := identity.NewProvider(repos.Credentials)
	return &App{
		Hub:      hub,
		JWT:      jwtUtil,
		Auth:     service.NewAuthService(repos.Users, idp, jwtUtil, hub),
		Accounts: service.NewAccountService(repos.Users, idp, hub),
		Posts:    service.NewFoodPostService(repos.Users, repos.FoodPosts, hub),
		Views:    readmodel.NewService(repos.Users, repos.FoodPosts, hub),
		ping:     ping,
	}
}

// Router registers every route on a new gin engine
func (a *App) Router(corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	jwtAuthMW := middleware.JWTAuthMiddleware(a.JWT)
	adminRoleMW := middleware.AdminMiddleware()

	apiGroup := router.Group("/api/v1")
	handler.NewAuthHandler(a.Auth).RegisterAuthRoutes(apiGroup, jwtAuthMW)
	handler.NewAdminHandler(a.Accounts, a.Views).RegisterAdminRoutes(apiGroup, jwtAuthMW, adminRoleMW)
	handler.NewFoodPostHandler(a.Posts, a.Views).RegisterFoodPostRoutes(apiGroup, jwtAuthMW)
	handler.NewMetaHandler(a.ping).RegisterMetaRoutes(router, apiGroup)

	return router
}
