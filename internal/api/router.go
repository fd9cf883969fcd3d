package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"roomstatus-backend/config"
	"roomstatus-backend/internal/auth"
	"roomstatus-backend/internal/metrics"
	"roomstatus-backend/internal/mw"
	"roomstatus-backend/internal/rooms"
	"roomstatus-backend/internal/store"
	"roomstatus-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, svc *rooms.Service, s store.Store, hub *ws.Hub, j *auth.JWT, webpushOptions *webpush.Options) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	handler := NewHandler(svc, s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// The VAPID key never changes at runtime; cache it aggressively.
	cacheStore := cache.New(5*time.Minute, 10*time.Minute)
	caching := mw.Cache(cacheStore, 5*time.Minute)

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Live event channel; the hub does its own token check.
	r.GET("/ws", gin.WrapF(hub.ServeWS))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(auth.Middleware(j))
		{
			authed.POST("/cleaning/start", handler.StartCleaning)
			authed.POST("/cleaning/finish", handler.FinishCleaning)
			authed.POST("/cleaning/reset", handler.ResetCleaning)
			authed.POST("/dnd", handler.SetDND)

			authed.GET("/logs", handler.GetLogs)
			authed.POST("/logs/clear", handler.ClearLogs)

			authed.PUT("/subscriptions", handler.PutSubscription)
			authed.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
