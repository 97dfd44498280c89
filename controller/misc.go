package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetStatus answers liveness probes.
func (ctl *Controller) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s v%s is running", ctl.appName, ctl.appVersion),
	})
}
