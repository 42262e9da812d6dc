package models

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
)

// Contribution holds one member's monthly amounts for one calendar year.
// Total is derived; see RecomputeTotal.
type Contribution struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	MemberID  primitive.ObjectID `bson:"member" json:"-"`
	Member    *MemberSummary     `bson:"-" json:"member"`
	Year      int                `bson:"year" json:"year"`
	January   float64            `bson:"january" json:"january"`
	February  float64            `bson:"february" json:"february"`
	March     float64            `bson:"march" json:"march"`
	April     float64            `bson:"april" json:"april"`
	May       float64            `bson:"may" json:"may"`
	June      float64            `bson:"june" json:"june"`
	July      float64            `bson:"july" json:"july"`
	August    float64            `bson:"august" json:"august"`
	September float64            `bson:"september" json:"september"`
	October   float64            `bson:"october" json:"october"`
	November  float64            `bson:"november" json:"november"`
	December  float64            `bson:"december" json:"december"`
	Total     float64            `bson:"total" json:"total"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// NewContribution returns a zeroed record for (memberID, year).
func NewContribution(memberID primitive.ObjectID, year int) *Contribution {
	now := Now()
	return &Contribution{
		ID:        primitive.NewObjectID(),
		MemberID:  memberID,
		Year:      year,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Contribution) field(m Month) *float64 {
	switch m {
	case January:
		return &c.January
	case February:
		return &c.February
	case March:
		return &c.March
	case April:
		return &c.April
	case May:
		return &c.May
	case June:
		return &c.June
	case July:
		return &c.July
	case August:
		return &c.August
	case September:
		return &c.September
	case October:
		return &c.October
	case November:
		return &c.November
	case December:
		return &c.December
	}
	return nil
}

func (c *Contribution) Amount(m Month) float64 {
	if f := c.field(m); f != nil {
		return *f
	}
	return 0
}

func (c *Contribution) SetAmount(m Month, amount float64) {
	if f := c.field(m); f != nil {
		*f = amount
	}
}

// MonthlyAmounts returns the twelve monthly fields in calendar order.
func (c *Contribution) MonthlyAmounts() [12]float64 {
	var out [12]float64
	for i, m := range Months {
		out[i] = c.Amount(m)
	}
	return out
}

// SumMonths adds the twelve amounts in decimal so that e.g. 0.1+0.2 sums to 0.3.
func SumMonths(amounts [12]float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.InexactFloat64()
}

// ComputedTotal is the sum of the monthly fields, ignoring the stored Total.
func (c *Contribution) ComputedTotal() float64 {
	return SumMonths(c.MonthlyAmounts())
}

// RecomputeTotal overwrites Total with the sum of the monthly fields. Every
// write path calls it before persisting.
func (c *Contribution) RecomputeTotal() {
	c.Total = c.ComputedTotal()
}

// AttachMember embeds the owner's summary; a missing owner leaves only the id.
func (c *Contribution) AttachMember(m *Member) {
	if m == nil {
		c.Member = &MemberSummary{ID: c.MemberID}
		return
	}
	c.Member = m.Summary()
}

func (c *Contribution) MemberName() string {
	if c.Member == nil {
		return ""
	}
	return c.Member.Name
}

// SortByMemberName orders records by owner name ascending, then by year descending.
func SortByMemberName(list []Contribution) {
	sort.SliceStable(list, func(i, j int) bool {
		ni, nj := strings.ToLower(list[i].MemberName()), strings.ToLower(list[j].MemberName())
		if ni != nj {
			return ni < nj
		}
		return list[i].Year > list[j].Year
	})
}

// SortByYearDesc orders records newest year first.
func SortByYearDesc(list []Contribution) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Year > list[j].Year })
}

// ContributionPatch is a direct overwrite of selected fields.
type ContributionPatch struct {
	Year   *int
	Months map[Month]float64
}

func (p ContributionPatch) Empty() bool {
	return p.Year == nil && len(p.Months) == 0
}

// Apply writes the patch onto c and recomputes the total.
func (p ContributionPatch) Apply(c *Contribution) {
	if p.Year != nil {
		c.Year = *p.Year
	}
	for m, v := range p.Months {
		c.SetAmount(m, v)
	}
	c.RecomputeTotal()
	c.UpdatedAt = Now()
}

// ignoredPatchKeys are accepted in a body but never written: identity, owner,
// timestamps and the derived total.
var ignoredPatchKeys = map[string]bool{
	"_id": true, "id": true, "member": true, "total": true,
	"createdAt": true, "updatedAt": true, "__v": true,
}

// ParseContributionPatch builds a patch from a decoded JSON object. Unknown
// keys are ignored.
func ParseContributionPatch(raw map[string]json.RawMessage) (ContributionPatch, error) {
	patch := ContributionPatch{Months: map[Month]float64{}}
	for key, value := range raw {
		if ignoredPatchKeys[key] {
			continue
		}
		if key == "year" {
			year, err := decodeYear(value)
			if err != nil {
				return ContributionPatch{}, err
			}
			patch.Year = &year
			continue
		}
		m, err := ParseMonth(key)
		if err != nil {
			continue
		}
		amount, err := decodeAmount(value)
		if err != nil {
			return ContributionPatch{}, apperr.Validationf("invalid amount for %s", m.Key())
		}
		patch.Months[m] = amount
	}
	return patch, nil
}

func decodeYear(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, apperr.Validationf("Invalid year parameter")
	}
	return ParseYear(n.String())
}

// decodeAmount accepts a JSON number or a numeric string. null is zero.
func decodeAmount(raw json.RawMessage) (float64, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validationf("amount must be a finite number")
	}
	return f, nil
}

// MonthAmountInput is the body of an upsert-by-month request. Both fields
// are kept raw so loosely typed clients can send strings or falsy values.
type MonthAmountInput struct {
	Amount json.RawMessage `json:"amount"`
	Year   json.RawMessage `json:"year"`
}

// ResolveYear applies the defaulting rule for body years: absent, null,
// false, "" and 0 mean the current year.
func (in MonthAmountInput) ResolveYear() (int, error) {
	raw := strings.TrimSpace(string(in.Year))
	switch raw {
	case "", "null", "false", `""`, "0":
		return CurrentYear(), nil
	}
	var s string
	if err := json.Unmarshal(in.Year, &s); err != nil {
		s = raw
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && n == 0 {
		return CurrentYear(), nil
	}
	return ParseYear(s)
}

// ResolveAmount treats an omitted or null amount as zero.
func (in MonthAmountInput) ResolveAmount() (float64, error) {
	f, err := decodeAmount(in.Amount)
	if err != nil {
		if apperr.Is(err, apperr.Validation) {
			return 0, err
		}
		return 0, apperr.Validationf("amount must be a number")
	}
	return f, nil
}
