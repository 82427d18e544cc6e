package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const banner = "COD OTP + Notifications Server Running ✔️"

// Health is the liveness probe for the hosting platform and the keep-alive ping.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func Root(c *gin.Context) {
	c.String(http.StatusOK, banner)
}
