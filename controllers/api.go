package controllers

import (
	"net/http"

	"apphost/internal/middleware"
	"apphost/internal/models"
	"apphost/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	server *services.Server
}

/**
 * Create new API controller instance
 * @param {*services.Server} server - Server wrapping the running launch
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(server *services.Server) *APIController {
	return &APIController{
		server: server,
	}
}

/**
 * Build the control API router
 * @param {*services.Server} server - Server wrapping the running launch
 * @returns {*gin.Engine} Router with every controller registered
 * @description
 * - Gin mode comes from server.mode
 * - /metrics is only registered when metrics are enabled
 * @example
 * router := controllers.NewRouter(server)
 * server.Listen(router)
 */
func NewRouter(server *services.Server) *gin.Engine {
	cfg := server.Config()
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	NewAPIController(server).RegisterRoutes(r)
	NewResourceController(server.Launcher()).RegisterRoutes(r)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	return r
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	api := r.Group("/apphost/api/v1")
	api.GET("/graph", a.Graph)
	api.POST("/stop", a.Stop)
}

// @Summary 业务就绪探针
// @Description 返回版本、运行ID、启动时间、健康状态和关键指标统计结果
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, a.server.GetHealthz())
}

// Graph returns the topology of the launch
//
//	@Summary		Topology graph
//	@Description	Nodes, edges and launch order as JSON, or as DOT / Mermaid text
//	@Tags			Graph
//	@Produce		json
//	@Param			format	query		string	false	"json (default), dot or mermaid"
//	@Success		200		{object}	topology.Snapshot
//	@Failure		400		{object}	models.ErrorResponse
//	@Router			/apphost/api/v1/graph [get]
func (a *APIController) Graph(c *gin.Context) {
	snap, err := a.server.Launcher().Graph().Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{Code: "graph.invalid", Error: err.Error()})
		return
	}
	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
		c.JSON(http.StatusOK, snap)
	case "dot":
		c.String(http.StatusOK, snap.DOT())
	case "mermaid":
		c.String(http.StatusOK, snap.Mermaid())
	default:
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Code:  "graph.format",
			Error: "unsupported format: " + format,
		})
	}
}

// Stop asks the launcher to shut down
//
//	@Summary		Stop the launch
//	@Description	Tears every resource down in reverse dependency order and ends the launch
//	@Tags			System
//	@Produce		json
//	@Success		202	{object}	map[string]interface{}
//	@Router			/apphost/api/v1/stop [post]
func (a *APIController) Stop(c *gin.Context) {
	a.server.Launcher().Stop()
	c.JSON(http.StatusAccepted, gin.H{
		"status": "stopping",
		"runId":  a.server.Launcher().RunID(),
	})
}
