package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"roomstatus-backend/internal/rooms"
	"roomstatus-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc     *rooms.Service
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(svc *rooms.Service, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		svc:     svc,
		store:   s,
		webpush: webpushOptions,
	}
}

// fail maps service errors to the HTTP surface. Precondition violations are
// the caller's problem (400); an unreachable store is retryable (503).
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rooms.ErrConflict), errors.Is(err, rooms.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status store unavailable, retry later"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
