package response

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/phillip/group-contributions-go/apperr"
)

// ErrorBody is the JSON shape of every failed request. Stack is null when
// failure detail is suppressed.
type ErrorBody struct {
	Message string  `json:"message"`
	Stack   *string `json:"stack"`
}

// Error aborts the request with the status of err's kind.
func Error(c *gin.Context, err error, showStack bool) {
	_ = c.Error(err)
	body := ErrorBody{Message: apperr.PublicMessage(err)}
	if showStack {
		s := Chain(err)
		body.Stack = &s
	}
	c.AbortWithStatusJSON(apperr.StatusOf(err), body)
}

// Chain lists err and every error it wraps, outermost first.
func Chain(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n  caused by: ")
}
