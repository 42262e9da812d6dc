package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/models"
	"github.com/phillip/group-contributions-go/report"
	"github.com/phillip/group-contributions-go/utils"
)

const (
	formatPDF  = "pdf"
	formatXLSX = "xlsx"

	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type yearReport struct {
	Year  int
	Rows  []report.Row
	Table report.Table
}

// loadReport ranks every record of the path year by computed total.
func (d *Deps) loadReport(c *gin.Context) (*yearReport, error) {
	year, err := models.ParseYear(c.Param("year"))
	if err != nil {
		return nil, err
	}
	ctx, cancel := d.requestContext(c)
	defer cancel()

	list, err := d.Store.ListContributionsByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	rows := report.Rank(list)
	return &yearReport{
		Year:  year,
		Rows:  rows,
		Table: report.BuildTable(report.Title(d.Cfg.GroupName, year), models.Now(), rows),
	}, nil
}

func (r *yearReport) render(format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case formatPDF:
		if err := report.WritePDF(&buf, r.Table); err != nil {
			return nil, "", apperr.Wrap(apperr.Internal, "render pdf report", err)
		}
		return buf.Bytes(), contentTypePDF, nil
	case formatXLSX:
		if err := report.WriteXLSX(&buf, r.Rows); err != nil {
			return nil, "", apperr.Wrap(apperr.Internal, "render xlsx report", err)
		}
		return buf.Bytes(), contentTypeXLSX, nil
	}
	return nil, "", apperr.Validationf("unsupported report format %q", format)
}

func (r *yearReport) fileName(format string) string {
	return fmt.Sprintf("contributions-%d.%s", r.Year, format)
}

// ---------------- JSON ----------------
func GetReport(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := d.loadReport(c)
		if err != nil {
			d.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, r.Table)
	}
}

// ---------------- DOWNLOAD ----------------
func DownloadReport(d *Deps, format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := d.loadReport(c)
		if err != nil {
			d.fail(c, err)
			return
		}
		data, contentType, err := r.render(format)
		if err != nil {
			d.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, r.fileName(format)))
		c.Data(http.StatusOK, contentType, data)
	}
}

type shareRequest struct {
	Format string `json:"format" binding:"required,oneof=pdf xlsx"`
	Email  string `json:"email" binding:"omitempty,email"`
}

type shareResponse struct {
	utils.PublishedReport
	EmailedTo string `json:"emailedTo,omitempty"`
}

// ---------------- SHARE ----------------
// ShareReport publishes the rendered report and optionally mails its link.
// When the mail cannot be sent the published file is removed again.
func ShareReport(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input shareRequest
		if err := bindJSON(c, &input, false); err != nil {
			d.fail(c, err)
			return
		}
		r, err := d.loadReport(c)
		if err != nil {
			d.fail(c, err)
			return
		}
		if d.Publisher == nil {
			d.fail(c, apperr.New(apperr.Unavailable, "report publishing is not configured"))
			return
		}
		if input.Email != "" && d.Mailer == nil {
			d.fail(c, apperr.New(apperr.Unavailable, "email delivery is not configured"))
			return
		}
		data, _, err := r.render(input.Format)
		if err != nil {
			d.fail(c, err)
			return
		}

		ctx := c.Request.Context()
		published, err := d.Publisher.UploadReport(ctx, r.fileName(input.Format), bytes.NewReader(data))
		if err != nil {
			d.fail(c, apperr.Wrap(apperr.Internal, "publish report", err))
			return
		}
		d.Log.Info("Report published", "year", r.Year, "format", input.Format, "public_id", published.PublicID)

		if input.Email != "" {
			title := r.Table.Title
			if err := d.Mailer.SendEmail(ctx, input.Email, title, utils.ReportEmailBody(title, published.URL)); err != nil {
				if derr := d.Publisher.DeleteReport(ctx, published.PublicID); derr != nil {
					d.Log.Warn("Could not remove published report", "public_id", published.PublicID, "error", derr)
				}
				d.fail(c, apperr.Wrap(apperr.Internal, "email report", err))
				return
			}
		}

		c.JSON(http.StatusOK, shareResponse{PublishedReport: *published, EmailedTo: input.Email})
	}
}
