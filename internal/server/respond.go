package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, story.ErrStoryNotFound),
		errors.Is(err, story.ErrPageNotFound),
		errors.Is(err, story.ErrParagraphNotFound),
		errors.Is(err, story.ErrImageNotFound),
		errors.Is(err, errVoiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, story.ErrInvalidMove),
		errors.Is(err, tts.ErrInvalidVoice),
		errors.Is(err, tts.ErrUnknownModel),
		errors.Is(err, tts.ErrUnknownSpeaker),
		errors.Is(err, tts.ErrEmptyText),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errNarrationDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are
// logged and reported generically.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		abortError(c, status, "internal server error")
		return
	}
	abortError(c, status, err.Error())
}

var (
	errBadRequest        = errors.New("bad request")
	errVoiceNotFound     = errors.New("voice nickname not found")
	errNarrationDisabled = errors.New("narration is not configured")
)

// requestLogger logs each request once it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Warn("request", attrs...)
		default:
			logger.Debug("request", attrs...)
		}
	}
}

// recovery turns panics into JSON 500 responses.
func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("handler panic", "path", c.Request.URL.Path, "panic", recovered)
		abortError(c, http.StatusInternalServerError, "internal server error")
	})
}
