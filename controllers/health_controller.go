package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/group-contributions-go/apperr"
)

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	}
}

// Ready reports whether the store answers a ping.
func Ready(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := d.requestContext(c)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			d.fail(c, apperr.Wrap(apperr.Unavailable, "store unavailable", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	}
}
