package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CaptureClientInfo stores the caller's IP and User-Agent in the request
// context so handlers and the session service see one consistent value.
func CaptureClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		userAgent := c.Request.UserAgent()

		c.Set("client_ip", ip)
		c.Set("client_user_agent", userAgent)

		logrus.WithFields(logrus.Fields{
			"client_ip": ip,
			"path":      c.FullPath(),
		}).Debug("Client info captured")

		c.Next()
	}
}

// SetRouteName tags the request with a stable route name for logging.
func SetRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}
