package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP statuses and client-safe messages.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "could not validate credentials"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "not authorized"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrorUpstream):
		return http.StatusBadGateway, "speech synthesis failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *HTTPServer) abort(c *gin.Context, err error) {
	status, msg := statusFor(err)

	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", common.BearerScheme)
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *HTTPServer) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}
