package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"biztech/api/internal/api/handlers"
	"biztech/api/internal/api/middleware"
	"biztech/api/internal/cache"
	"biztech/api/internal/config"
	"biztech/api/internal/models"
	"biztech/api/internal/payment"
	"biztech/api/internal/services"
	"biztech/api/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient *asynq.Client) *gin.Engine {
	processor := payment.NewProcessor(db, cfg)
	viewCounter := cache.NewViewCounter(rdb)

	accountService := services.NewAccountService(db, cfg)
	listingService := services.NewListingService(db, cfg, processor, viewCounter, accountService)
	leadService := services.NewLeadService(db, listingService)
	valuationService := services.NewValuationService(db)

	deliverableStorage, err := storage.NewDeliverableStorage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize deliverable storage: %v", err)
	}

	authHandler := handlers.NewAuthHandler(cfg, accountService, taskClient)
	listingHandler := handlers.NewListingHandler(listingService)
	leadHandler := handlers.NewLeadHandler(leadService, listingService, accountService, taskClient)
	agentHandler := handlers.NewAgentHandler(listingService, leadService, deliverableStorage)
	adminHandler := handlers.NewAdminHandler(accountService, listingService, valuationService, taskClient)
	valuationHandler := handlers.NewValuationHandler(valuationService, taskClient)
	paymentHandler := handlers.NewPaymentHandler(cfg, processor)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.PUT("/verifyemail/:token", authHandler.VerifyEmailByToken)
			auth.POST("/verify-email", authHandler.VerifyEmailByOTP)
			auth.POST("/login", authHandler.Login)
			auth.POST("/forgotpassword", authHandler.ForgotPassword)
			auth.PUT("/resetpassword/:token", authHandler.ResetPassword)
		}

		// Browse endpoints: anonymous allowed, a token upgrades visibility.
		browse := v1.Group("/")
		browse.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret, accountService))
		{
			browse.GET("/listings", listingHandler.List)
			browse.GET("/listings/:id", listingHandler.GetByID)
		}

		v1.POST("/valuation", valuationHandler.Create)

		sellers := v1.Group("/")
		sellers.Use(middleware.AuthMiddleware(cfg.JwtSecret, accountService), middleware.RoleMiddleware(models.RoleSeller, models.RoleAdmin))
		{
			sellers.POST("/listings", listingHandler.Create)
			sellers.PUT("/listings/:id", listingHandler.Update)
			sellers.DELETE("/listings/:id", listingHandler.Delete)
			sellers.GET("/seller/listings", listingHandler.ListMine)
			sellers.POST("/payments/subscribe", paymentHandler.Subscribe)
		}

		buyers := v1.Group("/")
		buyers.Use(middleware.AuthMiddleware(cfg.JwtSecret, accountService), middleware.RoleMiddleware(models.RoleBuyer))
		{
			buyers.POST("/leads", leadHandler.Create)
			buyers.GET("/buyer/leads", leadHandler.ListMine)
		}

		agents := v1.Group("/agent")
		agents.Use(middleware.AuthMiddleware(cfg.JwtSecret, accountService), middleware.RoleMiddleware(models.RoleAgent, models.RoleAdmin))
		{
			agents.GET("/listings", agentHandler.ListListings)
			agents.GET("/leads", agentHandler.ListLeads)
			agents.PUT("/leads/:id", agentHandler.UpdateLead)
			agents.POST("/listings/:id/deliverables", agentHandler.ToggleDeliverable)
			agents.POST("/listings/:id/deliverables/upload-url", agentHandler.DeliverableUploadURL)
		}

		admins := v1.Group("/admin")
		admins.Use(middleware.AuthMiddleware(cfg.JwtSecret, accountService), middleware.AdminMiddleware())
		{
			admins.GET("/users", adminHandler.ListUsers)
			admins.PUT("/users/:id/status", adminHandler.SetUserStatus)
			admins.GET("/pending-listings", adminHandler.ListPendingListings)
			admins.POST("/assign-agent", adminHandler.AssignAgent)
			admins.POST("/reject-listing", adminHandler.RejectListing)
			admins.POST("/create-agent", adminHandler.CreateAgent)
			admins.GET("/valuations", adminHandler.ListValuations)
		}
	}

	return r
}
