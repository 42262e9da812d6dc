// Package report turns contribution records into ranked report rows and
// renders them as a printable PDF table or a spreadsheet.
//
// Totals shown in a report are always derived from the twelve monthly
// amounts held at render time; the stored total of a record is never read.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phillip/group-contributions-go/models"
)

// Row is one ranked contribution record.
type Row struct {
	Rank   int
	ID     string
	Name   string
	Phone  string
	Email  string
	Year   int
	Months [12]float64
	Total  float64
}

// Summary holds the per-month column sums and the grand total.
type Summary struct {
	Months [12]float64
	Total  float64
}

// SortByTotal orders records by their computed total, highest first. Ties
// keep their incoming order.
func SortByTotal(list []models.Contribution) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ComputedTotal() > list[j].ComputedTotal()
	})
}

// ReplaceAndResort swaps in updated for the record with the same id and
// re-sorts by computed total. A record not already present is left out.
func ReplaceAndResort(list []models.Contribution, updated models.Contribution) []models.Contribution {
	out := make([]models.Contribution, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	SortByTotal(out)
	return out
}

// Rank sorts a copy of list by computed total and numbers it from 1.
func Rank(list []models.Contribution) []Row {
	sorted := make([]models.Contribution, len(list))
	copy(sorted, list)
	SortByTotal(sorted)

	rows := make([]Row, 0, len(sorted))
	for i, c := range sorted {
		row := Row{
			Rank:   i + 1,
			ID:     c.ID.Hex(),
			Year:   c.Year,
			Months: c.MonthlyAmounts(),
			Total:  c.ComputedTotal(),
		}
		if c.Member != nil {
			row.Name = c.Member.Name
			row.Phone = c.Member.Phone
			row.Email = c.Member.Email
		}
		rows = append(rows, row)
	}
	return rows
}

// Summarize adds up every month column and the totals in decimal.
func Summarize(rows []Row) Summary {
	var cols [12]decimal.Decimal
	grand := decimal.Zero
	for _, r := range rows {
		for i, v := range r.Months {
			cols[i] = cols[i].Add(decimal.NewFromFloat(v))
		}
		grand = grand.Add(decimal.NewFromFloat(r.Total))
	}
	var s Summary
	for i := range cols {
		s.Months[i] = cols[i].InexactFloat64()
	}
	s.Total = grand.InexactFloat64()
	return s
}

// FormatAmount renders an amount without trailing zeros, e.g. 500 or 12.5.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Table is the printable report: a ranked body plus a trailing totals row.
type Table struct {
	Title   string     `json:"title"`
	AsOf    string     `json:"asOf"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Totals  []string   `json:"totals,omitempty"`
}

// Title is the heading used by every rendering of a yearly report.
func Title(groupName string, year int) string {
	return fmt.Sprintf("%s - %d Contributions Report", groupName, year)
}

// BuildTable lays rows out as Rank, Name, Phone, Year, Jan..Dec, Total. The
// totals row is present only when there is at least one record.
func BuildTable(title string, asOf time.Time, rows []Row) Table {
	headers := []string{"Rank", "Name", "Phone", "Year"}
	for _, m := range models.Months {
		headers = append(headers, m.Short())
	}
	headers = append(headers, "Total")

	t := Table{
		Title:   title,
		AsOf:    asOf.Format("January 2, 2006"),
		Headers: headers,
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		cells := []string{
			strconv.Itoa(r.Rank),
			orDefault(r.Name, "-"),
			orDefault(r.Phone, "-"),
			yearCell(r.Year, "-"),
		}
		for _, v := range r.Months {
			cells = append(cells, FormatAmount(v))
		}
		cells = append(cells, FormatAmount(r.Total))
		t.Rows = append(t.Rows, cells)
	}

	if len(rows) > 0 {
		sum := Summarize(rows)
		totals := []string{"", "TOTALS", "", ""}
		for _, v := range sum.Months {
			totals = append(totals, FormatAmount(v))
		}
		t.Totals = append(totals, FormatAmount(sum.Total))
	}
	return t
}

func yearCell(year int, def string) string {
	if year == 0 {
		return def
	}
	return strconv.Itoa(year)
}

// FlatHeaders are the spreadsheet columns.
func FlatHeaders() []string {
	headers := []string{"Rank", "Name", "Phone", "Email", "Year"}
	for _, m := range models.Months {
		headers = append(headers, m.Label())
	}
	return append(headers, "Total")
}

// FlatRecord is one spreadsheet row: identity as text, amounts as numbers.
func FlatRecord(r Row) []interface{} {
	rec := []interface{}{
		r.Rank,
		orDefault(r.Name, "N/A"),
		orDefault(r.Phone, "N/A"),
		orDefault(r.Email, "N/A"),
	}
	if r.Year == 0 {
		rec = append(rec, "N/A")
	} else {
		rec = append(rec, r.Year)
	}
	for _, v := range r.Months {
		rec = append(rec, v)
	}
	return append(rec, r.Total)
}
