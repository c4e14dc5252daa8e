package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rishabhv97/kiwisqft/internal/api/middleware"
	"github.com/rishabhv97/kiwisqft/internal/lifecycle"
	"github.com/rishabhv97/kiwisqft/internal/search"
	"github.com/rishabhv97/kiwisqft/internal/services"
	"github.com/rishabhv97/kiwisqft/internal/submission"
)

// respondError maps a service error onto an HTTP response. fallback is the
// message used for unexpected failures.
func respondError(c *gin.Context, err error, fallback string) {
	var (
		ve  *submission.ValidationError
		ite *lifecycle.InvalidTransitionError
		ce  *services.CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &ite):
		status := http.StatusConflict
		if ite.Unknown {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": ite.Error()})
	case errors.Is(err, search.ErrInvalidIntent),
		errors.Is(err, search.ErrInvalidPropertyType),
		errors.Is(err, search.ErrInvalidStatus),
		errors.Is(err, search.ErrInvalidBedrooms):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Listing was changed by someone else, reload and try again"})
	case errors.Is(err, services.ErrListingSold), errors.Is(err, services.ErrNotAcceptingLeads):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &ce):
		_ = c.Error(err)
		slog.Error("collaborator failure", "collaborator", ce.Collaborator, "op", ce.Op, "error", ce.Err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "A backing service is unavailable, please retry"})
	case errors.Is(err, context.Canceled):
		// client went away
		c.Status(499)
	default:
		_ = c.Error(err)
		slog.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// actor reads the caller identity set by the auth middlewares.
func actor(c *gin.Context) services.Actor {
	return services.Actor{
		UserID: c.GetString(ownerKey),
		Admin:  c.GetBool(middleware.ContextKeyIsAdmin),
	}
}

// ownerKey is where AuthMiddleware leaves the caller's user id.
const ownerKey = middleware.ContextKeyUserID
