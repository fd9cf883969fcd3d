package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomstatus-backend/internal/model"
)

// GetLogs handles GET /api/logs. It returns the full authoritative snapshot
// that reconnecting clients rebuild their local view from, so the response
// is never cached.
func (h *Handler) GetLogs(c *gin.Context) {
	records, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []model.RoomRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// ClearLogs handles POST /api/logs/clear. Every record is deleted and all
// connected sessions are told to reset their caches.
func (h *Handler) ClearLogs(c *gin.Context) {
	if err := h.svc.ClearAll(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all cleaning logs cleared"})
}
