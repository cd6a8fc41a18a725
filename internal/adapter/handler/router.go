package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	runHandler     *Run
	historyHandler *History
	archiveHandler *Archive
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, runHandler *Run, historyHandler *History, archiveHandler *Archive) *Router {
	return &Router{
		cfg:            cfg,
		runHandler:     runHandler,
		historyHandler: historyHandler,
		archiveHandler: archiveHandler,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", rt.healthCheck)

	// API v1 group
	v1 := e.Group("/v1")

	rt.setupRunRoutes(v1)
	rt.setupHistoryRoutes(v1)

	v1.GET("/archive", rt.archiveHandler.List)
}

// setupRunRoutes configures run lifecycle routes
func (rt *Router) setupRunRoutes(g *echo.Group) {
	runGroup := g.Group("/runs")

	runGroup.POST("/upload", rt.runHandler.Upload)
	runGroup.POST("/zoom", rt.runHandler.StartZoom)
	runGroup.POST("/gdrive", rt.runHandler.StartDrive)
	runGroup.GET("/state", rt.runHandler.State)
	runGroup.POST("/sync", rt.runHandler.Sync)
	runGroup.POST("/reset", rt.runHandler.Reset)
}

// setupHistoryRoutes configures run history routes
func (rt *Router) setupHistoryRoutes(g *echo.Group) {
	historyGroup := g.Group("/history")

	historyGroup.GET("", rt.historyHandler.List)
	historyGroup.DELETE("", rt.historyHandler.Clear)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
