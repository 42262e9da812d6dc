// Package controllers holds the gin handlers of the /api surface. Each
// handler is built by a factory that closes over the shared Deps.
package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/config"
	"github.com/phillip/group-contributions-go/logger"
	"github.com/phillip/group-contributions-go/metrics"
	"github.com/phillip/group-contributions-go/middleware"
	"github.com/phillip/group-contributions-go/response"
	"github.com/phillip/group-contributions-go/store"
	"github.com/phillip/group-contributions-go/utils"
)

// Deps is everything a handler may need. Publisher and Mailer are nil when
// the corresponding integration is not configured; Metrics is nil when
// metrics are disabled.
type Deps struct {
	Cfg       *config.Config
	Store     store.Store
	Log       *logger.Logger
	Metrics   *metrics.Metrics
	Publisher utils.ReportPublisher
	Mailer    utils.Mailer
}

func (d *Deps) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d.Cfg.RequestTimeout)
}

// fail logs server-side failures and writes the error response.
func (d *Deps) fail(c *gin.Context, err error) {
	if apperr.StatusOf(err) >= http.StatusInternalServerError {
		d.Log.Error("Request failed",
			"path", c.FullPath(),
			"request_id", middleware.GetRequestID(c),
			"error", err,
		)
	}
	response.Error(c, err, !d.Cfg.IsProduction())
}

// bindJSON decodes the request body into dst. An empty body is accepted when
// allowEmpty is set and leaves dst untouched.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) error {
	err := c.ShouldBindJSON(dst)
	switch {
	case err == nil:
		return nil
	case allowEmpty && errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, io.EOF):
		return apperr.Validationf("request body is required")
	case middleware.IsBodyTooLarge(err):
		return apperr.New(apperr.TooLarge, "request body too large")
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return apperr.Wrap(apperr.Validation, strings.Join(msgs, "; "), err)
	}
	return apperr.Wrap(apperr.Validation, "invalid request body", err)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeList answers with list and list-level cache validators, or with 304
// when the caller's If-None-Match still matches.
func writeList[T any](c *gin.Context, list []T, stamp func(T) (primitive.ObjectID, time.Time)) {
	var latestID primitive.ObjectID
	var latest time.Time
	for _, item := range list {
		id, ts := stamp(item)
		if ts.After(latest) {
			latestID, latest = id, ts
		}
	}

	etag := utils.ListETag(len(list), latestID, latest)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", etag)
	if !latest.IsZero() {
		c.Header("Last-Modified", latest.UTC().Format(http.TimeFormat))
	}
	c.JSON(http.StatusOK, list)
}

// writeOne answers with a single document and its validators.
func writeOne(c *gin.Context, body any, id primitive.ObjectID, updatedAt time.Time) {
	etag := utils.GenerateETag(id, updatedAt)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("ETag", etag)
	c.Header("Last-Modified", updatedAt.UTC().Format(http.TimeFormat))
	c.JSON(http.StatusOK, body)
}
