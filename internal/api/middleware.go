package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aconic-ni/customsclass-r/internal/auth"
)

const identityKey = "identity"

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		case c.Request.URL.Path == "/api/healthz":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// identify resolves the caller. A request without a usable identity continues
// as anonymous; routes that need a user add requireUser.
func (s *Server) identify(c *gin.Context) {
	id, err := s.auth.Authenticate(c.Request)
	if err != nil {
		logrus.WithError(err).WithField("mode", s.auth.Mode()).Debug("request is anonymous")
		id = auth.Identity{}
	}
	c.Set(identityKey, id)
	c.Next()
}

func (s *Server) requireUser(c *gin.Context) {
	if identityFrom(c).Anonymous() {
		s.renderError(c, http.StatusUnauthorized, "Sign in to use your history.")
		c.Abort()
		return
	}
	c.Next()
}

func identityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}
