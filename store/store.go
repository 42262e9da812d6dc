// Package store persists members and their yearly contribution records.
//
// Two backends implement Store: MongoStore, the system of record, and
// MemoryStore, used for local runs and tests. Both keep the same guarantees:
// a contribution's total is recomputed on every write, at most one record
// exists per (member, year), and deleting a member removes its contributions
// together with it.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/models"
)

type Store interface {
	Ping(ctx context.Context) error

	ListMembers(ctx context.Context) ([]models.Member, error)
	GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error)
	// CreateMember inserts m together with its seed contribution for seedYear.
	CreateMember(ctx context.Context, m *models.Member, seedYear int) error
	UpdateMember(ctx context.Context, id primitive.ObjectID, patch models.MemberPatch) (*models.Member, error)
	// DeleteMember removes the member and every contribution it owns.
	DeleteMember(ctx context.Context, id primitive.ObjectID) error

	GetContribution(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error)
	ListContributionsByYear(ctx context.Context, year int) ([]models.Contribution, error)
	// ListContributionsByMember returns the member's records, newest year first.
	ListContributionsByMember(ctx context.Context, memberID primitive.ObjectID, year *int) ([]models.Contribution, error)
	UpdateContribution(ctx context.Context, id primitive.ObjectID, patch models.ContributionPatch) (*models.Contribution, error)
	// UpsertMonth sets one month of the (member, year) record, creating the
	// record first when it does not exist yet.
	UpsertMonth(ctx context.Context, memberID primitive.ObjectID, year int, month models.Month, amount float64) (*UpsertResult, error)
}

type UpsertResult struct {
	Contribution *models.Contribution
	Created      bool
}

func errMemberNotFound() error {
	return apperr.NotFoundf("Member not found")
}

func errContributionNotFound() error {
	return apperr.NotFoundf("Contribution not found")
}

func errDuplicateYear(year int) error {
	return apperr.New(apperr.Conflict, fmt.Sprintf("a contribution record for %d already exists for this member", year))
}

// ParseID converts a hex object id, reporting a malformed one as not found.
func ParseID(hex, entity string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFoundf("%s not found", entity)
	}
	return oid, nil
}
