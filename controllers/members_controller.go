package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/models"
	"github.com/phillip/group-contributions-go/store"
)

// ---------------- LIST ----------------
func ListMembers(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := d.requestContext(c)
		defer cancel()

		members, err := d.Store.ListMembers(ctx)
		if err != nil {
			d.fail(c, err)
			return
		}
		writeList(c, members, func(m models.Member) (primitive.ObjectID, time.Time) {
			return m.ID, m.UpdatedAt
		})
	}
}

// ---------------- GET ----------------
func GetMember(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := store.ParseID(c.Param("id"), "Member")
		if err != nil {
			d.fail(c, err)
			return
		}
		ctx, cancel := d.requestContext(c)
		defer cancel()

		member, err := d.Store.GetMember(ctx, id)
		if err != nil {
			d.fail(c, err)
			return
		}
		writeOne(c, member, member.ID, member.UpdatedAt)
	}
}

// ---------------- CREATE ----------------
// CreateMember also seeds the member's contribution record for the current year.
func CreateMember(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.MemberInput
		if err := bindJSON(c, &input, false); err != nil {
			d.fail(c, err)
			return
		}
		member, err := models.NewMember(input)
		if err != nil {
			d.fail(c, err)
			return
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		if err := d.Store.CreateMember(ctx, member, models.CurrentYear()); err != nil {
			d.fail(c, err)
			return
		}
		d.Log.Info("Member created", "member_id", member.ID.Hex())
		c.JSON(http.StatusCreated, member)
	}
}

// ---------------- UPDATE ----------------
func UpdateMember(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := store.ParseID(c.Param("id"), "Member")
		if err != nil {
			d.fail(c, err)
			return
		}
		var patch models.MemberPatch
		if err := bindJSON(c, &patch, true); err != nil {
			d.fail(c, err)
			return
		}
		if err := patch.Validate(); err != nil {
			d.fail(c, err)
			return
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		var member *models.Member
		if patch.Empty() {
			member, err = d.Store.GetMember(ctx, id)
		} else {
			member, err = d.Store.UpdateMember(ctx, id, patch)
		}
		if err != nil {
			d.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, member)
	}
}

// ---------------- DELETE ----------------
// DeleteMember removes the member together with all of its contribution records.
func DeleteMember(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := store.ParseID(c.Param("id"), "Member")
		if err != nil {
			d.fail(c, err)
			return
		}
		ctx, cancel := d.requestContext(c)
		defer cancel()

		if err := d.Store.DeleteMember(ctx, id); err != nil {
			d.Metrics.ObserveDelete(apperr.KindOf(err).String())
			d.fail(c, err)
			return
		}
		d.Metrics.ObserveDelete("deleted")
		d.Log.Info("Member deleted", "member_id", id.Hex())
		c.JSON(http.StatusOK, gin.H{"id": id.Hex()})
	}
}
