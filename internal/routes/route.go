package routes

import (
	"net/http"

	"github.com/clemson-tix/tigertix/internal/container"
	"github.com/clemson-tix/tigertix/internal/handlers"
	"github.com/clemson-tix/tigertix/internal/middleware"
	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	authOpts := handlers.AuthOptions{
		SecureCookies:    cfg.IsProduction(),
		ExposeResetToken: cfg.IsDevelopment(),
	}
	authenticate := middleware.Authenticate(container.AuthService, container.Logger)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"service": "tigertix-api",
		})
	})

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register(container.AuthService, authOpts))
		auth.POST("/login", handlers.Login(container.AuthService, authOpts))
		auth.POST("/refresh", handlers.Refresh(container.AuthService, authOpts))
		auth.POST("/logout", handlers.Logout(container.AuthService, authOpts))
		auth.POST("/logout-all", authenticate, handlers.LogoutAll(container.AuthService, authOpts))
		auth.GET("/me", authenticate, handlers.Me(container.AuthService))
		auth.POST("/password-reset/request", handlers.RequestPasswordReset(container.AuthService, authOpts))
		auth.POST("/password-reset/confirm", handlers.ConfirmPasswordReset(container.AuthService, authOpts))
	}

	client := api.Group("/client")
	{
		client.GET("/events", handlers.ListEvents(container.EventService))
		client.GET("/events/:id", handlers.GetEvent(container.EventService))

		booking := client.Group("/", authenticate)
		booking.POST("/events/:id/purchase", handlers.PurchaseEventTickets(container.InventoryService))
		booking.POST("/purchase", handlers.Purchase(container.InventoryService))
		booking.POST("/chat/book", handlers.ChatBook(container.IntentClassifier, container.EventService, container.InventoryService))
		booking.GET("/tickets", handlers.ListMyTickets(container.InventoryService))
	}

	api.POST("/llm/parse", handlers.ParseIntent(container.IntentClassifier))

	admin := api.Group("/admin", authenticate)
	{
		events := admin.Group("/events")
		events.GET("", handlers.ListEvents(container.EventService))
		events.GET("/:id", handlers.GetEvent(container.EventService))
		events.POST("", middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer), handlers.CreateEvent(container.EventService))
		events.PUT("/:id", middleware.RequireRole(models.RoleAdmin, models.RoleOrganizer), handlers.UpdateEvent(container.EventService))
		events.DELETE("/:id", middleware.RequireRole(models.RoleAdmin), handlers.DeleteEvent(container.EventService))
		events.POST("/:id/release", middleware.RequireRole(models.RoleAdmin), handlers.ReleaseTickets(container.InventoryService))

		admin.PATCH("/users/:id", middleware.RequireRole(models.RoleAdmin), handlers.UpdateUserStatus(container.AuthService))
	}

	return r
}
