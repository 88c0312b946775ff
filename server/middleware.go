package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is the HTTP header for request tracing.
const RequestIDHeader = "X-Request-ID"

const ctxKeyRequestID = "request_id"

// RequestID injects a unique request ID into the context and response
// header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, err := uuid.NewV7()
			if err != nil {
				id = uuid.New()
			}
			rid = id.String()
		}
		c.Set(ctxKeyRequestID, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Next()
	}
}

// RequestLogger logs every request once it completes.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxKeyRequestID)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request failed", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}

// apiError is an error with an HTTP status and a stable code.
type apiError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *apiError) Unwrap() error {
	return e.Err
}

func badRequest(msg string, err error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: msg, Err: err}
}

// ErrorHandler turns errors added with c.Error into JSON responses.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("unhandled request error", zap.Error(err))
		} else {
			logger.Debug("request error", zap.Int("status", status), zap.Error(err))
		}
		c.JSON(status, body)
	}
}

func errorResponse(err error) (int, gin.H) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.Status, gin.H{"success": false, "code": apiErr.Code, "error": apiErr.Error()}
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, gin.H{"success": false, "code": "TOO_LARGE", "error": "request body too large"}
	case errors.Is(err, prismlate.ErrNoFields):
		return http.StatusUnprocessableEntity, gin.H{"success": false, "code": "NO_FIELDS", "error": "No translatable fields found"}
	case errors.Is(err, prismlate.ErrSelectionBusy):
		return http.StatusConflict, gin.H{"success": false, "code": "SELECTION_BUSY", "error": err.Error()}
	}

	var selErr *prismlate.SelectionError
	if errors.As(err, &selErr) {
		return http.StatusUnprocessableEntity, gin.H{"success": false, "code": "BAD_SELECTION", "error": err.Error()}
	}
	var provErr *prismlate.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, gin.H{"success": false, "code": "PROVIDER_ERROR", "error": err.Error()}
	}

	return http.StatusInternalServerError, gin.H{"success": false, "code": "INTERNAL_ERROR", "error": "An internal error occurred"}
}

// limitBody caps the request body size.
func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
	}
	c.Next()
}
