package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/luxurytech30-cpu/meiza-font/logger"
	"go.uber.org/zap"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by code and message so that wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap returns a copy of a sentinel carrying the underlying cause.
func Wrap(sentinel *Error, err error) *Error {
	return New(sentinel.Code, sentinel.Message, err)
}

var (
	ErrUnauthorized    = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrTooManyRequests = New(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
	ErrInvalidInput    = New(http.StatusBadRequest, "Invalid input", nil)
)

// Store API failures
var (
	ErrBadGateway       = New(http.StatusBadGateway, "Upstream request failed", nil)
	ErrMalformedPayload = New(http.StatusBadGateway, "Malformed upstream payload", nil)
)

var ErrSoldOut = New(http.StatusConflict, "Sold out", nil)

// HTTPStatus returns the status code an error should be reported with.
func HTTPStatus(err error) int {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	var coded interface{ StatusCode() int }
	if stderrors.As(err, &coded) {
		return coded.StatusCode()
	}
	return http.StatusInternalServerError
}

// Message returns the user-facing message of an error.
func Message(err error) string {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// ErrorMiddleware renders the last error attached to the gin context. Errors that name an
// invalid field carry it in the response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			logger.Error(c, "Request failed", err, zap.Int("status", status))
		}

		body := gin.H{"error": Message(err)}
		var fieldErr interface{ InvalidField() string }
		if stderrors.As(err, &fieldErr) {
			body["field"] = fieldErr.InvalidField()
		}
		c.AbortWithStatusJSON(status, body)
	}
}
