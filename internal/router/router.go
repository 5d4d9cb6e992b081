package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"taskmint/internal/engine"
	"taskmint/internal/handler/api"
	"taskmint/internal/middleware"
	"taskmint/internal/repository"
	"taskmint/internal/runlock"

	"gorm.io/gorm"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	eng *engine.Engine,
	lock runlock.Lock,
	logger *zap.Logger,
	apiKey string,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	schedulerHandler := api.NewSchedulerHandler(
		eng,
		lock,
		repository.NewDefinitionRepository(db),
		repository.NewInstanceRepository(db),
		logger,
	)

	// API group with token auth
	apiGroup := e.Group("/api")
	apiGroup.Use(middleware.APIAuth(apiKey))

	apiGroup.POST("/scheduler/run", schedulerHandler.Run)
	apiGroup.GET("/scheduler/definitions", schedulerHandler.Definitions)
	apiGroup.GET("/scheduler/definitions/:id/instances", schedulerHandler.Instances)

	// Liveness probe, unauthenticated
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
