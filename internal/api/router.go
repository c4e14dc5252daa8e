package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhv97/kiwisqft/internal/api/handlers"
	"github.com/rishabhv97/kiwisqft/internal/api/middleware"
	"github.com/rishabhv97/kiwisqft/internal/config"
	"github.com/rishabhv97/kiwisqft/internal/services"
)

// SetupRouter configures and returns the main Gin engine. ctx bounds the
// lifetime of the rate limiter's housekeeping.
func SetupRouter(ctx context.Context, cfg *config.Config, listingService services.IListingService, leadService services.ILeadService) *gin.Engine {
	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware(cfg.CorsAllowedOrigin))
	r.Use(rateLimiter.Limit())

	restConfigHandler := handlers.NewRestConfigHandler()
	restListingHandler := handlers.NewRestListingHandler(listingService)
	restLeadHandler := handlers.NewRestLeadHandler(leadService)
	restAdminHandler := handlers.NewRestAdminHandler(listingService)

	requireAuth := middleware.AuthMiddleware(cfg.JwtSecret)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JwtSecret)
	writes := rateLimiter.LimitWrites()

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		v1.GET("/config", restConfigHandler.GetPublicConfig)

		// Public browsing. A token, when present, lets owners and admins see
		// listings still under moderation.
		v1.GET("/listings", restListingHandler.SearchListings)
		v1.GET("/listings/:id", optionalAuth, restListingHandler.GetListingByID)
		v1.POST("/listings/:id/leads", optionalAuth, writes, restLeadHandler.CreateLead)

		authRequired := v1.Group("/")
		authRequired.Use(requireAuth)
		{
			authRequired.POST("/listings", writes, restListingHandler.SubmitListing)
			authRequired.POST("/listings/describe", writes, restListingHandler.GenerateDescription)
			authRequired.PATCH("/listings/:id", restListingHandler.UpdateListing)
			authRequired.DELETE("/listings/:id", restListingHandler.DeleteListing)
			authRequired.GET("/me/listings", restListingHandler.MyListings)
			authRequired.GET("/me/leads", restLeadHandler.MyLeads)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(requireAuth, middleware.AdminMiddleware())
		{
			adminRequired.GET("/listings", restAdminHandler.ModerationQueue)
			adminRequired.PATCH("/listings/:id/status", restAdminHandler.ChangeStatus)
			adminRequired.DELETE("/listings/:id", restListingHandler.DeleteListing)
		}
	}

	return r
}
