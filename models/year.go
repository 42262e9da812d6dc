package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/phillip/group-contributions-go/apperr"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

// Now is the clock used for defaults such as the current year and join dates.
var Now = time.Now

func CurrentYear() int {
	return Now().Year()
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return apperr.Validationf("Invalid year parameter")
	}
	return nil
}

// ParseYear parses a base-10 integer year and checks it is within [MinYear, MaxYear].
func ParseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperr.Validationf("Invalid year parameter")
	}
	if err := ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

// YearOrCurrent parses s, falling back to the current year when s is empty.
func YearOrCurrent(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return CurrentYear(), nil
	}
	return ParseYear(s)
}

// OptionalYear parses s, returning nil when s is empty.
func OptionalYear(s string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	year, err := ParseYear(s)
	if err != nil {
		return nil, err
	}
	return &year, nil
}
