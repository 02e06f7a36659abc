package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-service/internal/http/middleware"
	"parking-service/internal/model"
)

func NewRouter(
	handler *Handler,
	wsHandler *WSHandler,
	authMiddleware gin.HandlerFunc,
	env string,
	extra ...gin.HandlerFunc,
) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(middleware.Metrics())
	for _, m := range extra {
		router.Use(m)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/api/v1/auth/login", handler.login)

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/gates/entry/:gateID/tickets", handler.driveIn)
		protected.POST("/gates/exit/:gateID/tickets/:ticketID", handler.driveOut)

		protected.GET("/tickets/active/:plate", handler.findActiveTicket)

		protected.GET("/availability", handler.availability)
		protected.GET("/availability/:spotType", handler.availabilityByType)

		protected.GET("/status", handler.lotStatus)

		protected.GET("/history",
			middleware.RequireRole(model.OperatorRoleSupervisor),
			handler.listHistory)
	}

	ws := router.Group("/ws")
	ws.Use(authMiddleware)
	ws.GET("", wsHandler.serve)

	return router
}
