package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin   = 14.0
	pdfRowH     = 7.0
	pdfFontSize = 8.0
)

// pdfColumnWidths fit Rank, Name, Phone, Year, twelve months and Total across
// a landscape A4 page inside the margins.
var pdfColumnWidths = func() []float64 {
	widths := []float64{10, 40, 28, 12}
	for i := 0; i < 12; i++ {
		widths = append(widths, 13)
	}
	return append(widths, 23)
}()

// WritePDF renders t as a landscape, paginated table. The header row is
// repeated on every page and each page carries its number in the footer.
func WritePDF(w io.Writer, t Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "L", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.SetTextColor(40, 40, 40)
	pdf.CellFormat(0, 8, tr(t.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "As of: "+t.AsOf, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	_, pageH := pdf.GetPageSize()
	bottom := pageH - 15

	header := func() {
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(41, 128, 185)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.3)
		for i, h := range t.Headers {
			pdf.CellFormat(colWidth(i), pdfRowH, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	row := func(cells []string, bold bool) {
		if pdf.GetY()+pdfRowH > bottom {
			pdf.AddPage()
			header()
		}
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, pdfFontSize)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetLineWidth(0.2)
		for i, cell := range cells {
			align := "R"
			if i == 1 || i == 2 {
				align = "L"
			}
			pdf.CellFormat(colWidth(i), pdfRowH, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	header()
	for _, cells := range t.Rows {
		row(cells, false)
	}
	if len(t.Totals) > 0 {
		row(t.Totals, true)
	}

	return pdf.Output(w)
}

func colWidth(i int) float64 {
	if i < len(pdfColumnWidths) {
		return pdfColumnWidths[i]
	}
	return 13
}
