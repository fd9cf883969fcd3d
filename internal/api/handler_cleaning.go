package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"roomstatus-backend/internal/auth"
)

type startRequest struct {
	Room  int    `json:"room" binding:"required,gt=0"`
	Actor string `json:"actor"`
}

type finishRequest struct {
	Room       int    `json:"room" binding:"required,gt=0"`
	Actor      string `json:"actor"`
	FinishTime string `json:"finishTime"`
}

type resetRequest struct {
	Room int `json:"room" binding:"required,gt=0"`
}

type dndRequest struct {
	Room   int   `json:"room" binding:"required,gt=0"`
	Active *bool `json:"active" binding:"required"`
}

// actor resolves who performed the action: the display name supplied by the
// client when present, the authenticated principal otherwise.
func actor(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return auth.Principal(c)
}

// StartCleaning handles POST /api/cleaning/start.
func (h *Handler) StartCleaning(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.Start(c.Request.Context(), req.Room, actor(c, req.Actor), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("cleaning of room %d started", req.Room),
		"record":  rec,
	})
}

// FinishCleaning handles POST /api/cleaning/finish. An RFC3339 finishTime in
// the body overrides the server clock (late entry of a clean that finished
// earlier).
func (h *Handler) FinishCleaning(c *gin.Context) {
	var req finishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at := time.Now().UTC()
	if req.FinishTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.FinishTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid finishTime, use RFC3339"})
			return
		}
		at = parsed.UTC()
	}

	rec, err := h.svc.Finish(c.Request.Context(), req.Room, actor(c, req.Actor), at)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("cleaning of room %d finished", req.Room),
		"record":  rec,
	})
}

// ResetCleaning handles POST /api/cleaning/reset.
func (h *Handler) ResetCleaning(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.Reset(c.Request.Context(), req.Room)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("cleaning status of room %d reset", req.Room),
		"record":  rec,
	})
}

// SetDND handles POST /api/dnd.
func (h *Handler) SetDND(c *gin.Context) {
	var req dndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.SetDND(c.Request.Context(), req.Room, *req.Active)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": rec})
}
