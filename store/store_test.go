package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/logger"
	"github.com/phillip/group-contributions-go/models"
)

// runStoreSuite exercises the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	year := models.CurrentYear()

	createMember := func(t *testing.T, s Store, name string) *models.Member {
		t.Helper()
		m, err := models.NewMember(models.MemberInput{Name: name})
		require.NoError(t, err)
		require.NoError(t, s.CreateMember(ctx, m, year))
		return m
	}

	t.Run("create seeds current year record", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Jane Doe")

		list, err := s.ListContributionsByMember(ctx, m.ID, nil)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, year, list[0].Year)
		assert.Zero(t, list[0].Total)
		assert.Equal(t, [12]float64{}, list[0].MonthlyAmounts())
		require.NotNil(t, list[0].Member)
		assert.Equal(t, "Jane Doe", list[0].Member.Name)
	})

	t.Run("upsert replaces month and recomputes total", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Jane Doe")

		first, err := s.UpsertMonth(ctx, m.ID, year, models.March, 500)
		require.NoError(t, err)
		assert.False(t, first.Created)
		assert.Equal(t, 500.0, first.Contribution.March)
		assert.Equal(t, 500.0, first.Contribution.Total)

		second, err := s.UpsertMonth(ctx, m.ID, year, models.March, 750)
		require.NoError(t, err)
		assert.Equal(t, first.Contribution.ID, second.Contribution.ID)
		assert.Equal(t, 750.0, second.Contribution.March)
		assert.Equal(t, 750.0, second.Contribution.Total)
		assert.Equal(t, "Jane Doe", second.Contribution.Member.Name)
	})

	t.Run("upsert is idempotent", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Idem")

		for i := 0; i < 3; i++ {
			_, err := s.UpsertMonth(ctx, m.ID, year, models.June, 120)
			require.NoError(t, err)
		}
		list, err := s.ListContributionsByMember(ctx, m.ID, &year)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 120.0, list[0].Total)
	})

	t.Run("upsert for unseen year creates one zeroed record", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Later")

		res, err := s.UpsertMonth(ctx, m.ID, 2020, models.December, 40)
		require.NoError(t, err)
		assert.True(t, res.Created)

		want := [12]float64{}
		want[11] = 40
		assert.Equal(t, want, res.Contribution.MonthlyAmounts())
		assert.Equal(t, 40.0, res.Contribution.Total)

		list, err := s.ListContributionsByMember(ctx, m.ID, nil)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, year, list[0].Year)
		assert.Equal(t, 2020, list[1].Year)
	})

	t.Run("upsert for missing member", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpsertMonth(ctx, primitive.NewObjectID(), year, models.May, 10)
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("concurrent upserts keep one record per year", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Racer")

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpsertMonth(ctx, m.ID, 2015, models.April, 25)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		y := 2015
		list, err := s.ListContributionsByMember(ctx, m.ID, &y)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("update by id recomputes total", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Patchy")
		list, err := s.ListContributionsByMember(ctx, m.ID, nil)
		require.NoError(t, err)
		id := list[0].ID

		updated, err := s.UpdateContribution(ctx, id, models.ContributionPatch{
			Months: map[models.Month]float64{models.January: 10, models.February: 15},
		})
		require.NoError(t, err)
		assert.Equal(t, 25.0, updated.Total)
		assert.Equal(t, "Patchy", updated.Member.Name)

		_, err = s.UpdateContribution(ctx, primitive.NewObjectID(), models.ContributionPatch{})
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("update by id rejects a year that is taken", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Twice")
		_, err := s.UpsertMonth(ctx, m.ID, 2019, models.May, 1)
		require.NoError(t, err)

		list, err := s.ListContributionsByMember(ctx, m.ID, &year)
		require.NoError(t, err)
		taken := 2019
		_, err = s.UpdateContribution(ctx, list[0].ID, models.ContributionPatch{Year: &taken})
		assert.True(t, apperr.Is(err, apperr.Conflict))
	})

	t.Run("delete cascades", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Gone")
		keep := createMember(t, s, "Stays")
		for _, y := range []int{2018, 2019} {
			_, err := s.UpsertMonth(ctx, m.ID, y, models.July, 5)
			require.NoError(t, err)
		}
		owned, err := s.ListContributionsByMember(ctx, m.ID, nil)
		require.NoError(t, err)
		require.Len(t, owned, 3)

		require.NoError(t, s.DeleteMember(ctx, m.ID))

		for _, c := range owned {
			_, err := s.GetContribution(ctx, c.ID)
			assert.True(t, apperr.Is(err, apperr.NotFound))
		}
		_, err = s.GetMember(ctx, m.ID)
		assert.True(t, apperr.Is(err, apperr.NotFound))
		assert.True(t, apperr.Is(s.DeleteMember(ctx, m.ID), apperr.NotFound))

		rest, err := s.ListContributionsByMember(ctx, keep.ID, nil)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})

	t.Run("members listed by name", func(t *testing.T) {
		s := newStore(t)
		createMember(t, s, "Zawadi")
		createMember(t, s, "Amina")
		createMember(t, s, "Mary")

		list, err := s.ListMembers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"Amina", "Mary", "Zawadi"}, []string{list[0].Name, list[1].Name, list[2].Name})
	})

	t.Run("update member", func(t *testing.T) {
		s := newStore(t)
		m := createMember(t, s, "Old Name")
		name, active := "New Name", false

		updated, err := s.UpdateMember(ctx, m.ID, models.MemberPatch{Name: &name, IsActive: &active})
		require.NoError(t, err)
		assert.Equal(t, "New Name", updated.Name)
		assert.False(t, updated.IsActive)

		_, err = s.UpdateMember(ctx, primitive.NewObjectID(), models.MemberPatch{Name: &name})
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("year list ordered by id", func(t *testing.T) {
		s := newStore(t)
		for _, name := range []string{"Zed", "Abel", "Mira"} {
			createMember(t, s, name)
		}
		list, err := s.ListContributionsByYear(ctx, year)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i := 1; i < len(list); i++ {
			assert.Less(t, list[i-1].ID.Hex(), list[i].ID.Hex())
		}
	})

	t.Run("empty year lists empty", func(t *testing.T) {
		s := newStore(t)
		list, err := s.ListContributionsByYear(ctx, 2001)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	client, err := ConnectMongo(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	runStoreSuite(t, func(t *testing.T) Store {
		dbName := "contributions_test_" + primitive.NewObjectID().Hex()
		s := NewMongoStore(client, dbName, false, logger.Nop())
		require.NoError(t, s.EnsureIndexes(ctx))
		t.Cleanup(func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Database(dbName).Drop(cctx)
		})
		return s
	})
}

func TestParseID(t *testing.T) {
	_, err := ParseID("not-hex", "Member")
	assert.True(t, apperr.Is(err, apperr.NotFound))

	oid := primitive.NewObjectID()
	got, err := ParseID(oid.Hex(), "Member")
	require.NoError(t, err)
	assert.Equal(t, oid, got)
}
