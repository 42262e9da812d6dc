package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/models"
)

type yearKey struct {
	member primitive.ObjectID
	year   int
}

// MemoryStore keeps everything in process memory behind one mutex, so every
// operation is atomic.
type MemoryStore struct {
	mu            sync.Mutex
	members       map[primitive.ObjectID]models.Member
	contributions map[primitive.ObjectID]models.Contribution
	byYear        map[yearKey]primitive.ObjectID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:       map[primitive.ObjectID]models.Member{},
		contributions: map[primitive.ObjectID]models.Contribution{},
		byYear:        map[yearKey]primitive.ObjectID{},
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) ListMembers(_ context.Context) ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *MemoryStore) GetMember(_ context.Context, id primitive.ObjectID) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, errMemberNotFound()
	}
	return &m, nil
}

func (s *MemoryStore) CreateMember(_ context.Context, m *models.Member, seedYear int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.members[m.ID] = *m
	seed := models.NewContribution(m.ID, seedYear)
	seed.RecomputeTotal()
	s.putContribution(*seed)
	return nil
}

func (s *MemoryStore) UpdateMember(_ context.Context, id primitive.ObjectID, patch models.MemberPatch) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, errMemberNotFound()
	}
	patch.Apply(&m)
	s.members[id] = m
	return &m, nil
}

func (s *MemoryStore) DeleteMember(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return errMemberNotFound()
	}
	for cid, c := range s.contributions {
		if c.MemberID == id {
			delete(s.contributions, cid)
			delete(s.byYear, yearKey{c.MemberID, c.Year})
		}
	}
	delete(s.members, id)
	return nil
}

func (s *MemoryStore) GetContribution(_ context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok {
		return nil, errContributionNotFound()
	}
	return s.joined(c), nil
}

func (s *MemoryStore) ListContributionsByYear(_ context.Context, year int) ([]models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(c models.Contribution) bool { return c.Year == year }), nil
}

func (s *MemoryStore) ListContributionsByMember(_ context.Context, memberID primitive.ObjectID, year *int) ([]models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filter(func(c models.Contribution) bool {
		return c.MemberID == memberID && (year == nil || c.Year == *year)
	})
	models.SortByYearDesc(out)
	return out, nil
}

func (s *MemoryStore) UpdateContribution(_ context.Context, id primitive.ObjectID, patch models.ContributionPatch) (*models.Contribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contributions[id]
	if !ok {
		return nil, errContributionNotFound()
	}
	oldKey := yearKey{c.MemberID, c.Year}
	patch.Apply(&c)
	newKey := yearKey{c.MemberID, c.Year}
	if newKey != oldKey {
		if _, taken := s.byYear[newKey]; taken {
			return nil, errDuplicateYear(c.Year)
		}
		delete(s.byYear, oldKey)
	}
	s.putContribution(c)
	return s.joined(c), nil
}

func (s *MemoryStore) UpsertMonth(_ context.Context, memberID primitive.ObjectID, year int, month models.Month, amount float64) (*UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c models.Contribution
	created := false
	if id, ok := s.byYear[yearKey{memberID, year}]; ok {
		c = s.contributions[id]
	} else {
		if _, ok := s.members[memberID]; !ok {
			return nil, errMemberNotFound()
		}
		c = *models.NewContribution(memberID, year)
		created = true
	}

	c.SetAmount(month, amount)
	c.RecomputeTotal()
	c.UpdatedAt = models.Now()
	s.putContribution(c)
	return &UpsertResult{Contribution: s.joined(c), Created: created}, nil
}

// putContribution stores c and indexes it by (member, year). Callers hold mu.
func (s *MemoryStore) putContribution(c models.Contribution) {
	c.Member = nil
	s.contributions[c.ID] = c
	s.byYear[yearKey{c.MemberID, c.Year}] = c.ID
}

func (s *MemoryStore) joined(c models.Contribution) *models.Contribution {
	if m, ok := s.members[c.MemberID]; ok {
		c.AttachMember(&m)
	} else {
		c.AttachMember(nil)
	}
	return &c
}

func (s *MemoryStore) filter(keep func(models.Contribution) bool) []models.Contribution {
	out := []models.Contribution{}
	for _, c := range s.contributions {
		if keep(c) {
			out = append(out, *s.joined(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.Compare(out[i].ID.Hex(), out[j].ID.Hex()) < 0
	})
	return out
}
