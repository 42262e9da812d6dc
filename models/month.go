package models

import (
	"strings"
	"time"

	"github.com/phillip/group-contributions-go/apperr"
)

// Month is a calendar month, January == 1.
type Month int

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

var monthKeys = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Months lists every month in calendar order.
var Months = []Month{
	January, February, March, April, May, June,
	July, August, September, October, November, December,
}

// ParseMonth accepts a canonical English month name in any letter case.
func ParseMonth(s string) (Month, error) {
	key := strings.ToLower(s)
	for i, k := range monthKeys {
		if k == key {
			return Month(i + 1), nil
		}
	}
	return 0, apperr.Validationf("Invalid month")
}

func (m Month) Valid() bool {
	return m >= January && m <= December
}

// Key is the lowercase field name the month is stored under.
func (m Month) Key() string {
	if !m.Valid() {
		return ""
	}
	return monthKeys[m-1]
}

// Label is the display name, e.g. "March".
func (m Month) Label() string {
	if !m.Valid() {
		return ""
	}
	return time.Month(m).String()
}

// Short is the three letter column header, e.g. "Mar".
func (m Month) Short() string {
	if !m.Valid() {
		return ""
	}
	return m.Label()[:3]
}

func (m Month) String() string { return m.Key() }
