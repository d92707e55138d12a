package server

import (
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/dependency"
	"pos-handoff-svc/src/internal/middleware"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupPublicRoutes(router, deps)
	setupHandoffRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"handoff": "operational",
					"sweeper": "operational",
					"cache":   "operational",
				},
			},
		})
	})
}

func setupPublicRoutes(router *gin.Engine, deps *dependency.Manager) {
	// API status endpoint
	router.GET("/api/v1/status", func(c *gin.Context) {
		log.Info("API status requested")
		c.JSON(200, gin.H{
			"api_version": "v1",
			"status":      "operational",
			"service":     "pos-handoff-svc",
		})
	})
}

func setupHandoffRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.SessionHandler

	handoff := router.Group("/api/v1/handoff")
	handoff.Use(middleware.CaptureClientInfo())
	{
		handoff.POST("/sessions",
			middleware.SetRouteName("createSession"),
			handler.CreateSession)

		handoff.POST("/sessions/:id/activate",
			middleware.SetRouteName("activateSession"),
			handler.ActivateSession)

		handoff.POST("/sessions/:id/events",
			middleware.SetRouteName("trackEvent"),
			handler.TrackEvent)

		handoff.POST("/sessions/:id/complete",
			middleware.SetRouteName("completeSession"),
			handler.CompleteSession)

		handoff.POST("/sessions/:id/cancel",
			middleware.SetRouteName("cancelSession"),
			handler.CancelSession)

		handoff.POST("/sessions/:id/fail",
			middleware.SetRouteName("failSession"),
			handler.FailSession)

		handoff.POST("/sessions/:id/extend",
			middleware.SetRouteName("extendSession"),
			handler.ExtendSession)

		handoff.GET("/sessions/:id",
			middleware.SetRouteName("getSession"),
			handler.GetSession)

		handoff.GET("/sessions/:id/analytics",
			middleware.SetRouteName("getSessionAnalytics"),
			handler.GetAnalytics)

		// Not under /sessions: a static segment there would conflict with
		// the :id param in gin's route tree.
		handoff.POST("/sweep",
			middleware.SetRouteName("sweepSessions"),
			handler.SweepSessions)
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
