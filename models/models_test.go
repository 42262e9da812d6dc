package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
)

func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return at }
	t.Cleanup(func() { Now = prev })
}

func TestParseMonth(t *testing.T) {
	for _, s := range []string{"January", "january", "JANUARY"} {
		m, err := ParseMonth(s)
		require.NoError(t, err, s)
		assert.Equal(t, January, m)
		assert.Equal(t, "january", m.Key())
	}
	for _, s := range []string{"jan", "13th-month", "", " march"} {
		_, err := ParseMonth(s)
		assert.True(t, apperr.Is(err, apperr.Validation), s)
	}

	assert.Equal(t, "Sep", September.Short())
	assert.Equal(t, "May", May.Short())
	assert.Equal(t, "December", December.Label())
	assert.Len(t, Months, 12)
}

func TestParseYear(t *testing.T) {
	for _, s := range []string{"1999", "2101", "abc", "20x4", ""} {
		_, err := ParseYear(s)
		assert.True(t, apperr.Is(err, apperr.Validation), s)
	}
	for _, s := range []string{"2000", "2100", "2024"} {
		_, err := ParseYear(s)
		assert.NoError(t, err, s)
	}
}

func TestYearDefaults(t *testing.T) {
	fixClock(t, time.Date(2031, 5, 1, 0, 0, 0, 0, time.UTC))

	y, err := YearOrCurrent("")
	require.NoError(t, err)
	assert.Equal(t, 2031, y)

	opt, err := OptionalYear("")
	require.NoError(t, err)
	assert.Nil(t, opt)

	_, err = OptionalYear("0")
	assert.Error(t, err)

	for _, raw := range []string{"", "null", "false", `""`, "0", `"0"`} {
		y, err := MonthAmountInput{Year: json.RawMessage(raw)}.ResolveYear()
		require.NoError(t, err, raw)
		assert.Equal(t, 2031, y, raw)
	}
	for raw, want := range map[string]int{"2024": 2024, `"2024"`: 2024, `" 2100 "`: 2100} {
		y, err := MonthAmountInput{Year: json.RawMessage(raw)}.ResolveYear()
		require.NoError(t, err, raw)
		assert.Equal(t, want, y, raw)
	}
	for _, raw := range []string{"1999", `"2101"`, "true", "2024.5", `"abc"`} {
		_, err = MonthAmountInput{Year: json.RawMessage(raw)}.ResolveYear()
		assert.True(t, apperr.Is(err, apperr.Validation), raw)
	}
}

func TestResolveAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"", 0},
		{"null", 0},
		{"500", 500},
		{`"500"`, 500},
		{`" 12.5 "`, 12.5},
		{`""`, 0},
		{"-20", -20},
	}
	for _, tt := range tests {
		got, err := MonthAmountInput{Amount: json.RawMessage(tt.raw)}.ResolveAmount()
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{`"lots"`, "true", `"NaN"`, "[1]"} {
		_, err := MonthAmountInput{Amount: json.RawMessage(raw)}.ResolveAmount()
		assert.True(t, apperr.Is(err, apperr.Validation), raw)
	}
}

func TestRecomputeTotal(t *testing.T) {
	c := NewContribution(primitive.NewObjectID(), 2024)
	c.Total = 999
	c.RecomputeTotal()
	assert.Zero(t, c.Total)

	c.SetAmount(March, 500)
	c.SetAmount(December, 0.1)
	c.SetAmount(November, 0.2)
	c.RecomputeTotal()
	assert.Equal(t, 500.3, c.Total)
	assert.Equal(t, 500.0, c.Amount(March))
}

func TestParseContributionPatch(t *testing.T) {
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"april": 100, "total": 5, "year": 2025, "member": "x", "nickname": "y"}`), &raw))

	p, err := ParseContributionPatch(raw)
	require.NoError(t, err)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2025, *p.Year)
	assert.Equal(t, map[Month]float64{April: 100}, p.Months)

	c := NewContribution(primitive.NewObjectID(), 2024)
	c.January = 50
	p.Apply(c)
	assert.Equal(t, 2025, c.Year)
	assert.Equal(t, 150.0, c.Total)

	raw = nil
	require.NoError(t, json.Unmarshal([]byte(`{"year": 1999}`), &raw))
	_, err = ParseContributionPatch(raw)
	assert.True(t, apperr.Is(err, apperr.Validation))

	raw = nil
	require.NoError(t, json.Unmarshal([]byte(`{"may": "lots"}`), &raw))
	_, err = ParseContributionPatch(raw)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestSortByMemberName(t *testing.T) {
	list := []Contribution{
		{Year: 2024, Member: &MemberSummary{Name: "zed"}},
		{Year: 2023, Member: &MemberSummary{Name: "Amy"}},
		{Year: 2024, Member: &MemberSummary{Name: "amy"}},
	}
	SortByMemberName(list)
	assert.Equal(t, 2024, list[0].Year)
	assert.Equal(t, 2023, list[1].Year)
	assert.Equal(t, "zed", list[2].MemberName())
}

func TestMemberPatchValidate(t *testing.T) {
	empty, bad, good := "  ", "not-an-email", "jane@example.com"
	assert.Error(t, MemberPatch{Name: &empty}.Validate())
	assert.Error(t, MemberPatch{Email: &bad}.Validate())
	assert.NoError(t, MemberPatch{Email: &good}.Validate())
	blank := ""
	assert.NoError(t, MemberPatch{Email: &blank}.Validate())
	assert.True(t, MemberPatch{}.Empty())
}

func TestNewMember(t *testing.T) {
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	fixClock(t, at)

	m, err := NewMember(MemberInput{Name: " Jane Doe "})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", m.Name)
	assert.True(t, m.IsActive)
	assert.Equal(t, at, m.JoinDate)
	assert.False(t, m.ID.IsZero())

	_, err = NewMember(MemberInput{Name: "   "})
	assert.True(t, apperr.Is(err, apperr.Validation))
}
