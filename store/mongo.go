package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/phillip/group-contributions-go/apperr"
	"github.com/phillip/group-contributions-go/logger"
	"github.com/phillip/group-contributions-go/models"
)

const (
	membersCollection       = "members"
	contributionsCollection = "contributions"

	upsertAttempts = 3
)

type MongoStore struct {
	client          *mongo.Client
	members         *mongo.Collection
	contributions   *mongo.Collection
	useTransactions bool
	log             *logger.Logger
}

// ConnectMongo dials uri and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore binds the store to dbName. With useTransactions the
// multi-document writes run in a transaction, which needs a replica set;
// without it they run as a compensated sequence.
func NewMongoStore(client *mongo.Client, dbName string, useTransactions bool, log *logger.Logger) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:          client,
		members:         db.Collection(membersCollection),
		contributions:   db.Collection(contributionsCollection),
		useTransactions: useTransactions,
		log:             log.With("component", "mongo_store"),
	}
}

// EnsureIndexes creates the (member, year) uniqueness constraint and the
// lookup indexes. Safe to call on every start.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.contributions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "member", Value: 1}, {Key: "year", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("member_year_unique"),
		},
		{
			Keys:    bson.D{{Key: "year", Value: 1}},
			Options: options.Index().SetName("year"),
		},
	})
	if err != nil {
		return fmt.Errorf("create contribution indexes: %w", err)
	}
	_, err = s.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name"),
	})
	if err != nil {
		return fmt.Errorf("create member indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ---------------- MEMBERS ----------------

func (s *MongoStore) ListMembers(ctx context.Context) ([]models.Member, error) {
	cursor, err := s.members.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not fetch members", err)
	}
	members := []models.Member{}
	if err := cursor.All(ctx, &members); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not decode members", err)
	}
	return members, nil
}

func (s *MongoStore) GetMember(ctx context.Context, id primitive.ObjectID) (*models.Member, error) {
	var m models.Member
	err := s.members.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errMemberNotFound()
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not fetch member", err)
	}
	return &m, nil
}

func (s *MongoStore) CreateMember(ctx context.Context, m *models.Member, seedYear int) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	seed := models.NewContribution(m.ID, seedYear)
	seed.RecomputeTotal()

	if s.useTransactions {
		return s.withTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.members.InsertOne(ctx, m); err != nil {
				return apperr.Wrap(apperr.Internal, "could not create member", err)
			}
			if _, err := s.contributions.InsertOne(ctx, seed); err != nil {
				return apperr.Wrap(apperr.Internal, "could not create initial contribution", err)
			}
			return nil
		})
	}

	if _, err := s.members.InsertOne(ctx, m); err != nil {
		return apperr.Wrap(apperr.Internal, "could not create member", err)
	}
	if _, err := s.contributions.InsertOne(ctx, seed); err != nil {
		if _, derr := s.members.DeleteOne(ctx, bson.M{"_id": m.ID}); derr != nil {
			s.log.Error("rollback of member insert failed", "member_id", m.ID.Hex(), "error", derr)
		}
		return apperr.Wrap(apperr.Internal, "could not create initial contribution", err)
	}
	s.log.Debug("member created", "member_id", m.ID.Hex(), "seed_year", seedYear)
	return nil
}

func (s *MongoStore) UpdateMember(ctx context.Context, id primitive.ObjectID, patch models.MemberPatch) (*models.Member, error) {
	update := bson.M{"updated_at": models.Now()}
	if patch.Name != nil {
		update["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		update["phone"] = strings.TrimSpace(*patch.Phone)
	}
	if patch.Email != nil {
		update["email"] = strings.TrimSpace(*patch.Email)
	}
	if patch.IsActive != nil {
		update["is_active"] = *patch.IsActive
	}
	if patch.JoinDate != nil {
		update["join_date"] = *patch.JoinDate
	}

	var updated models.Member
	err := s.members.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errMemberNotFound()
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to update member", err)
	}
	return &updated, nil
}

func (s *MongoStore) DeleteMember(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetMember(ctx, id); err != nil {
		return err
	}

	if s.useTransactions {
		return s.withTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.contributions.DeleteMany(ctx, bson.M{"member": id}); err != nil {
				return apperr.Wrap(apperr.Internal, "failed to delete contributions", err)
			}
			res, err := s.members.DeleteOne(ctx, bson.M{"_id": id})
			if err != nil {
				return apperr.Wrap(apperr.Internal, "failed to delete member", err)
			}
			if res.DeletedCount == 0 {
				return errMemberNotFound()
			}
			return nil
		})
	}

	// Snapshot the owned records so they can be restored if the member
	// delete fails after they are gone.
	cursor, err := s.contributions.Find(ctx, bson.M{"member": id})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to read contributions", err)
	}
	var snapshot []bson.M
	if err := cursor.All(ctx, &snapshot); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to read contributions", err)
	}

	if _, err := s.contributions.DeleteMany(ctx, bson.M{"member": id}); err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete contributions", err)
	}
	res, err := s.members.DeleteOne(ctx, bson.M{"_id": id})
	if err == nil && res.DeletedCount == 1 {
		s.log.Debug("member deleted", "member_id", id.Hex(), "contributions", len(snapshot))
		return nil
	}

	if len(snapshot) > 0 {
		docs := make([]interface{}, len(snapshot))
		for i := range snapshot {
			docs[i] = snapshot[i]
		}
		if _, rerr := s.contributions.InsertMany(ctx, docs); rerr != nil {
			s.log.Error("restore of contributions failed", "member_id", id.Hex(), "count", len(docs), "error", rerr)
		}
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to delete member", err)
	}
	return errMemberNotFound()
}

// ---------------- CONTRIBUTIONS ----------------

type joinedContribution struct {
	models.Contribution `bson:",inline"`
	Owner               *models.Member `bson:"owner,omitempty"`
}

func (s *MongoStore) findJoined(ctx context.Context, match bson.M, sort bson.D) ([]models.Contribution, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: membersCollection},
			{Key: "localField", Value: "member"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$owner"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
	if len(sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sort}})
	}

	cursor, err := s.contributions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not fetch contributions", err)
	}
	var rows []joinedContribution
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "could not decode contributions", err)
	}

	out := make([]models.Contribution, 0, len(rows))
	for _, row := range rows {
		c := row.Contribution
		c.AttachMember(row.Owner)
		out = append(out, c)
	}
	return out, nil
}

func (s *MongoStore) GetContribution(ctx context.Context, id primitive.ObjectID) (*models.Contribution, error) {
	rows, err := s.findJoined(ctx, bson.M{"_id": id}, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errContributionNotFound()
	}
	return &rows[0], nil
}

func (s *MongoStore) ListContributionsByYear(ctx context.Context, year int) ([]models.Contribution, error) {
	return s.findJoined(ctx, bson.M{"year": year}, bson.D{{Key: "_id", Value: 1}})
}

func (s *MongoStore) ListContributionsByMember(ctx context.Context, memberID primitive.ObjectID, year *int) ([]models.Contribution, error) {
	match := bson.M{"member": memberID}
	if year != nil {
		match["year"] = *year
	}
	return s.findJoined(ctx, match, bson.D{{Key: "year", Value: -1}})
}

func (s *MongoStore) UpdateContribution(ctx context.Context, id primitive.ObjectID, patch models.ContributionPatch) (*models.Contribution, error) {
	set := bson.D{{Key: "updated_at", Value: models.Now()}}
	if patch.Year != nil {
		set = append(set, bson.E{Key: "year", Value: *patch.Year})
	}
	for _, m := range models.Months {
		if v, ok := patch.Months[m]; ok {
			set = append(set, bson.E{Key: m.Key(), Value: bson.D{{Key: "$literal", Value: v}}})
		}
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}, totalStage()}

	var updated models.Contribution
	err := s.contributions.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, errContributionNotFound()
	case mongo.IsDuplicateKeyError(err) && patch.Year != nil:
		return nil, errDuplicateYear(*patch.Year)
	case err != nil:
		return nil, apperr.Wrap(apperr.Internal, "failed to update contribution", err)
	}
	return s.attachOwner(ctx, &updated)
}

func (s *MongoStore) UpsertMonth(ctx context.Context, memberID primitive.ObjectID, year int, month models.Month, amount float64) (*UpsertResult, error) {
	filter := bson.M{"member": memberID, "year": year}
	pipeline := monthPipeline(month, amount, models.Now())
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc models.Contribution
	err := s.contributions.FindOneAndUpdate(ctx, filter, pipeline, after).Decode(&doc)
	if err == nil {
		c, err := s.attachOwner(ctx, &doc)
		if err != nil {
			return nil, err
		}
		return &UpsertResult{Contribution: c}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Wrap(apperr.Internal, "failed to update contribution", err)
	}

	owner, err := s.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	// The unique (member, year) index turns a concurrent insert into a
	// duplicate key error; the retry then matches the winner's record.
	upsert := options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)
	for attempt := 1; ; attempt++ {
		err = s.contributions.FindOneAndUpdate(ctx, filter, pipeline, upsert).Decode(&doc)
		if err == nil {
			break
		}
		if !mongo.IsDuplicateKeyError(err) || attempt >= upsertAttempts {
			return nil, apperr.Wrap(apperr.Internal, "failed to create contribution", err)
		}
		s.log.Debug("upsert raced with concurrent insert, retrying", "member_id", memberID.Hex(), "year", year, "attempt", attempt)
	}

	doc.AttachMember(owner)
	created := doc.CreatedAt.Equal(doc.UpdatedAt)
	return &UpsertResult{Contribution: &doc, Created: created}, nil
}

func (s *MongoStore) attachOwner(ctx context.Context, c *models.Contribution) (*models.Contribution, error) {
	owner, err := s.GetMember(ctx, c.MemberID)
	if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, err
	}
	c.AttachMember(owner)
	return c, nil
}

func (s *MongoStore) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return apperr.Wrap(apperr.Internal, "could not start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// monthPipeline sets one month, defaults the other eleven to 0 on insert,
// and recomputes the total in the same update.
func monthPipeline(month models.Month, amount float64, now time.Time) mongo.Pipeline {
	set := bson.D{}
	for _, m := range models.Months {
		if m == month {
			set = append(set, bson.E{Key: m.Key(), Value: bson.D{{Key: "$literal", Value: amount}}})
			continue
		}
		set = append(set, bson.E{Key: m.Key(), Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + m.Key(), 0}}}})
	}
	set = append(set,
		bson.E{Key: "created_at", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$created_at", now}}}},
		bson.E{Key: "updated_at", Value: now},
	)
	return mongo.Pipeline{{{Key: "$set", Value: set}}, totalStage()}
}

// totalStage sums the twelve months in Decimal128 so the stored total
// matches models.SumMonths.
func totalStage() bson.D {
	terms := make(bson.A, 0, len(models.Months))
	for _, m := range models.Months {
		terms = append(terms, bson.D{{Key: "$toDecimal", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + m.Key(), 0}}}}})
	}
	return bson.D{{Key: "$set", Value: bson.D{
		{Key: "total", Value: bson.D{{Key: "$toDouble", Value: bson.D{{Key: "$add", Value: terms}}}}},
	}}}
}
