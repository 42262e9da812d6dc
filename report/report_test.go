package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/models"
)

func record(name string, amounts map[models.Month]float64) models.Contribution {
	c := models.NewContribution(primitive.NewObjectID(), 2024)
	for m, v := range amounts {
		c.SetAmount(m, v)
	}
	c.Member = &models.MemberSummary{ID: c.MemberID, Name: name, Phone: "0700" + name}
	return *c
}

func fixture() []models.Contribution {
	low := record("Low", map[models.Month]float64{models.January: 10})
	high := record("High", map[models.Month]float64{models.January: 100, models.March: 50})
	mid := record("Mid", map[models.Month]float64{models.February: 60})
	// Stale stored totals must not influence ranking.
	low.Total = 1_000_000
	high.Total = 0
	return []models.Contribution{low, high, mid}
}

func TestRank_UsesComputedTotals(t *testing.T) {
	rows := Rank(fixture())
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"High", "Mid", "Low"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	assert.Equal(t, 150.0, rows[0].Total)
	assert.Equal(t, 10.0, rows[2].Total)
}

func TestSummarize(t *testing.T) {
	sum := Summarize(Rank(fixture()))
	assert.Equal(t, 110.0, sum.Months[0])
	assert.Equal(t, 60.0, sum.Months[1])
	assert.Equal(t, 50.0, sum.Months[2])
	assert.Equal(t, 220.0, sum.Total)
}

func TestBuildTable(t *testing.T) {
	asOf := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)
	tbl := BuildTable(Title("Kangemi Women Group", 2024), asOf, Rank(fixture()))

	assert.Equal(t, "Kangemi Women Group - 2024 Contributions Report", tbl.Title)
	assert.Equal(t, "July 4, 2024", tbl.AsOf)
	require.Len(t, tbl.Headers, 17)
	assert.Equal(t, "Jan", tbl.Headers[4])
	assert.Equal(t, "Total", tbl.Headers[16])

	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, []string{"1", "High", "0700High", "2024", "100", "0", "50"}, tbl.Rows[0][:7])
	assert.Equal(t, "150", tbl.Rows[0][16])

	require.Len(t, tbl.Totals, 17)
	assert.Equal(t, "TOTALS", tbl.Totals[1])
	assert.Equal(t, "110", tbl.Totals[4])
	assert.Equal(t, "220", tbl.Totals[16])
}

func TestBuildTable_Empty(t *testing.T) {
	tbl := BuildTable("x", time.Now(), nil)
	assert.Empty(t, tbl.Rows)
	assert.Nil(t, tbl.Totals)
}

func TestBuildTable_MissingMember(t *testing.T) {
	c := record("", map[models.Month]float64{models.May: 3})
	c.Member = nil
	tbl := BuildTable("x", time.Now(), Rank([]models.Contribution{c}))
	assert.Equal(t, "-", tbl.Rows[0][1])
	assert.Equal(t, "-", tbl.Rows[0][2])
}

func TestReplaceAndResort(t *testing.T) {
	list := fixture()
	SortByTotal(list)
	assert.Equal(t, "High", list[0].MemberName())

	edited := list[2]
	edited.SetAmount(models.December, 1000)
	out := ReplaceAndResort(list, edited)

	require.Len(t, out, 3)
	assert.Equal(t, edited.ID, out[0].ID)
	assert.Equal(t, 1010.0, out[0].ComputedTotal())
	assert.Equal(t, "High", list[0].MemberName(), "input list is not modified")
}

func TestFlatRecord(t *testing.T) {
	rows := Rank(fixture())
	rec := FlatRecord(rows[0])

	require.Len(t, rec, len(FlatHeaders()))
	assert.Equal(t, 1, rec[0])
	assert.Equal(t, "High", rec[1])
	assert.Equal(t, "N/A", rec[3])
	assert.Equal(t, 2024, rec[4])
	assert.Equal(t, 100.0, rec[5])
	assert.Equal(t, 150.0, rec[len(rec)-1])
	assert.Equal(t, "January", FlatHeaders()[5])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Rank(fixture())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, "Total", rows[0][17])
	assert.Equal(t, "High", rows[1][1])
	assert.Equal(t, "150", rows[1][17])
}

func TestWritePDF(t *testing.T) {
	var list []models.Contribution
	for i := 0; i < 60; i++ {
		list = append(list, record("Member", map[models.Month]float64{models.April: float64(i)}))
	}
	tbl := BuildTable("Group - 2024 Contributions Report", time.Now(), Rank(list))

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, tbl))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
