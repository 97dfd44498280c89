package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) ListModels(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.bridge.Models())
}
