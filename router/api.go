package router

import (
	"context"
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/atelierhq/atelier/guard"
	"github.com/atelierhq/atelier/handlers"
	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/services"
)

func NewGinRouter(pg *sql.DB, redis *redis.Client) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize services
	containerService, err := services.NewContainerService(config.App.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize container storage: %v", err)
	}
	// The plugins container is shared infrastructure and must exist at boot.
	if err := containerService.EnsureContainer(context.Background(), "plugins"); err != nil {
		log.Fatalf("Failed to ensure plugins container: %v", err)
	}

	broadcaster := services.NewEventBroadcaster(redis)
	authService := services.NewAuthService(pg, config.App.JWTSecret)

	// Initialize guard pipeline
	pipeline := guard.NewSimpleBackend(pg, containerService)

	accountService := services.NewAccountService(pg, authService, pipeline)
	projectService := services.NewProjectService(pg, pipeline, broadcaster)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService, authService)
	accountHandler := handlers.NewAccountHandler(accountService)
	projectHandler := handlers.NewProjectHandler(projectService)
	authMiddleware := handlers.NewAuthMiddleware(authService)

	// Public routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	// Guarded mutations run under OptionalAuth: the guard pipeline decides
	// how an absent actor is refused, so the middleware must not pre-empt it.
	api := r.Group("/api")
	api.Use(authMiddleware.OptionalAuth())
	{
		// Accounts
		api.GET("/accounts/:id", accountHandler.GetAccount)
		api.GET("/accounts/:id/collaborators", accountHandler.ListCollaborators)
		api.PUT("/accounts/:id/collaborators/rel/:fk", accountHandler.LinkCollaborator)
		api.GET("/accounts/:id/projects", projectHandler.ListAccountProjects)
		api.POST("/accounts/:id/projects", projectHandler.CreateProject)
		api.GET("/accounts/:id/roles", projectHandler.ListAccountRoles)
		api.PUT("/accounts/:id/roles/rel/:fk", projectHandler.LinkRole)
		api.POST("/accounts/:id/threads", accountHandler.CreateThread)

		// Projects
		api.GET("/projects/:id", projectHandler.GetProject)
		api.GET("/projects/:id/accounts", projectHandler.ListProjectAccounts)
		api.PUT("/projects/:id/accounts/rel/:fk", projectHandler.LinkProjectAccount)
		api.POST("/projects/:id/roles", projectHandler.CreateRole)
		api.GET("/projects/:id/bugs", projectHandler.ListBugs)
		api.POST("/projects/:id/bugs", projectHandler.CreateBug)
		api.GET("/projects/:id/tasks", projectHandler.ListTasks)
		api.POST("/projects/:id/tasks", projectHandler.CreateTask)
		api.POST("/projects/:id/meetings", projectHandler.CreateMeeting)
		api.POST("/projects/:id/steps", projectHandler.CreateStep)

		// Bugs
		api.GET("/bugs/:id", projectHandler.GetBug)
		api.PUT("/bugs/:id/assignees/rel/:fk", projectHandler.AssignBug)

		// Threads and messages
		api.GET("/threads/:id", accountHandler.GetThread)
		api.PUT("/threads/:id/accounts/rel/:fk", accountHandler.LinkThreadAccount)
		api.POST("/threads/:id/messages", accountHandler.CreateMessage)
		api.GET("/messages/:id", accountHandler.GetMessage)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
