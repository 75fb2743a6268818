package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler renders the last error pushed with c.Error and turns panics
// into 500 responses.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Recovered from panic",
					zap.Any("panic", rec),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		last := c.Errors.Last()
		status, body := Render(last.Err, last.IsType(gin.ErrorTypeBind))
		if status >= http.StatusInternalServerError {
			logger.Error("Request failed",
				zap.Error(last.Err),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path))
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// Render maps an error to a status code and response body.
func Render(err error, bind bool) (int, ErrorResponse) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, ErrorResponse{Error: service.ErrValidation.Error(), Fields: verr.Fields()}
	}

	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		fields := make(map[string][]string, len(bindErrs))
		for _, fe := range bindErrs {
			fields[fe.Field()] = append(fields[fe.Field()], describe(fe))
		}
		return http.StatusBadRequest, ErrorResponse{Error: service.ErrValidation.Error(), Fields: fields}
	}

	switch {
	case bind:
		return http.StatusBadRequest, ErrorResponse{Error: "malformed request: " + err.Error()}
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: err.Error()}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

// UseJSONFieldNames makes gin's binding validator report json field names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}
