package controllers

import (
	"fmt"
	"net/http"

	"apphost/internal/models"
	"apphost/services"

	"github.com/gin-gonic/gin"
)

type ResourceController struct {
	launcher *services.Launcher
}

func NewResourceController(launcher *services.Launcher) *ResourceController {
	return &ResourceController{
		launcher: launcher,
	}
}

func (s *ResourceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/apphost/api/v1")
	api.GET("/resources", s.ListResources)
	api.GET("/resources/:name", s.GetResource)
}

// ListResources returns the launch and every resource
//
//	@Summary		List resources
//	@Description	Host state plus the state, endpoint and pid of every resource in launch order
//	@Tags			Resources
//	@Produce		json
//	@Success		200	{object}	models.HostStatus
//	@Router			/apphost/api/v1/resources [get]
func (s *ResourceController) ListResources(c *gin.Context) {
	c.JSON(http.StatusOK, s.launcher.Snapshot())
}

// GetResource returns one resource
//
//	@Summary		Get resource
//	@Tags			Resources
//	@Produce		json
//	@Param			name	path		string	true	"Resource name"
//	@Success		200		{object}	models.ResourceStatus
//	@Failure		404		{object}	models.ErrorResponse
//	@Router			/apphost/api/v1/resources/{name} [get]
func (s *ResourceController) GetResource(c *gin.Context) {
	name := c.Param("name")
	status, ok := s.launcher.ResourceStatus(name)
	if !ok {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{
			Code:  "resource.notexist",
			Error: fmt.Sprintf("resource [%s] isn't exist", name),
		})
		return
	}
	c.JSON(http.StatusOK, status)
}
