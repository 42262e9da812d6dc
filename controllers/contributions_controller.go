package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/models"
	"github.com/phillip/group-contributions-go/store"
)

func contributionStamp(c models.Contribution) (primitive.ObjectID, time.Time) {
	return c.ID, c.UpdatedAt
}

// ---------------- LIST BY YEAR ----------------
// ListContributions lists every record of ?year=, the current year by default.
func ListContributions(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := models.YearOrCurrent(c.Query("year"))
		if err != nil {
			d.fail(c, err)
			return
		}
		ctx, cancel := d.requestContext(c)
		defer cancel()

		list, err := d.Store.ListContributionsByYear(ctx, year)
		if err != nil {
			d.fail(c, err)
			return
		}
		writeList(c, list, contributionStamp)
	}
}

// ---------------- LIST BY MEMBER ----------------
func ListMemberContributions(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := models.OptionalYear(c.Query("year"))
		if err != nil {
			d.fail(c, err)
			return
		}
		memberID, err := store.ParseID(c.Param("memberId"), "Member")
		if err != nil {
			d.fail(c, err)
			return
		}
		ctx, cancel := d.requestContext(c)
		defer cancel()

		list, err := d.Store.ListContributionsByMember(ctx, memberID, year)
		if err != nil {
			d.fail(c, err)
			return
		}
		writeList(c, list, contributionStamp)
	}
}

// ---------------- LIST FOR YEAR ----------------
// ListContributionsForYear lists the records of the path year ordered by
// member name. The ordering is applied after the owner join.
func ListContributionsForYear(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, err := models.ParseYear(c.Param("year"))
		if err != nil {
			d.fail(c, err)
			return
		}
		ctx, cancel := d.requestContext(c)
		defer cancel()

		list, err := d.Store.ListContributionsByYear(ctx, year)
		if err != nil {
			d.fail(c, err)
			return
		}
		models.SortByMemberName(list)
		writeList(c, list, contributionStamp)
	}
}

// ---------------- UPDATE ----------------
// UpdateContribution overwrites the provided month fields (and year) of one
// record. The total is always recomputed; a total in the body is ignored.
func UpdateContribution(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw map[string]json.RawMessage
		if err := bindJSON(c, &raw, true); err != nil {
			d.fail(c, err)
			return
		}
		patch, err := models.ParseContributionPatch(raw)
		if err != nil {
			d.fail(c, err)
			return
		}
		id, err := store.ParseID(c.Param("id"), "Contribution")
		if err != nil {
			d.fail(c, err)
			return
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		updated, err := d.Store.UpdateContribution(ctx, id, patch)
		if err != nil {
			d.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// ---------------- UPSERT MONTH ----------------
// UpsertMonth sets one month of the member's record for the body year,
// creating a zeroed record first when the member has none for that year.
func UpsertMonth(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		month, err := models.ParseMonth(c.Param("month"))
		if err != nil {
			d.fail(c, err)
			return
		}
		var input models.MonthAmountInput
		if err := bindJSON(c, &input, true); err != nil {
			d.fail(c, err)
			return
		}
		year, err := input.ResolveYear()
		if err != nil {
			d.fail(c, err)
			return
		}
		amount, err := input.ResolveAmount()
		if err != nil {
			d.fail(c, err)
			return
		}
		memberID, err := store.ParseID(c.Param("memberId"), "Member")
		if err != nil {
			d.fail(c, err)
			return
		}

		ctx, cancel := d.requestContext(c)
		defer cancel()

		res, err := d.Store.UpsertMonth(ctx, memberID, year, month, amount)
		if err != nil {
			d.Metrics.ObserveUpsert("error")
			d.fail(c, err)
			return
		}
		if res.Created {
			d.Metrics.ObserveUpsert("created")
			d.Log.Info("Contribution record created", "member_id", memberID.Hex(), "year", year)
		} else {
			d.Metrics.ObserveUpsert("updated")
		}
		c.JSON(http.StatusOK, res.Contribution)
	}
}
