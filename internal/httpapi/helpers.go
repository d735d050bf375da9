package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder/pkg/graph"
	"github.com/goliatone/go-formbuilder/pkg/session"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

// Error codes carried in error responses.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidSchema   = "INVALID_SCHEMA"
	CodeDerivedField    = "DERIVED_FIELD"
	CodePersistence     = "PERSISTENCE_FAILED"
	CodeInternal        = "INTERNAL"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
)

var errSessionNotFound = errors.New("httpapi: session not found")

// invalidSchemaError carries the issues found when a posted schema fails
// the structural check.
type invalidSchemaError struct {
	result validation.SchemaValidationResult
}

func (e *invalidSchemaError) Error() string {
	return "httpapi: schema failed validation"
}

func classify(err error) (int, string) {
	var invalid *invalidSchemaError
	var persistence *store.PersistenceError
	var cycle *graph.CycleError
	var duplicate *graph.DuplicateFieldError
	var unknownParent *graph.UnknownParentError
	switch {
	case errors.As(err, &invalid), errors.As(err, &cycle),
		errors.As(err, &duplicate), errors.As(err, &unknownParent):
		return http.StatusUnprocessableEntity, CodeInvalidSchema
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, CodeSessionNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrInvalidID), errors.Is(err, session.ErrUnknownField):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, session.ErrDerivedField):
		return http.StatusConflict, CodeDerivedField
	case errors.As(err, &persistence):
		return http.StatusInternalServerError, CodePersistence
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// respondError writes the standard error envelope for err.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("code", code),
			slog.Any("error", err),
		)
	}
	body := gin.H{
		"error":   err.Error(),
		"message": err.Error(),
		"code":    code,
		"data":    nil,
	}
	var invalid *invalidSchemaError
	if errors.As(err, &invalid) {
		body["data"] = invalid.result
	}
	c.JSON(status, body)
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   err.Error(),
		"message": err.Error(),
		"code":    CodeBadRequest,
		"data":    nil,
	})
}
