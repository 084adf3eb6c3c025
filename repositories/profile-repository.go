package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProfileRepository stores the charity self-service flow in four
// collections. Links, sessions and rate counters expire through TTL
// indexes on expires_at.
type ProfileRepository struct {
	links    *mongo.Collection
	sessions *mongo.Collection
	rates    *mongo.Collection
	events   *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		links:    db.Collection("profile_links"),
		sessions: db.Collection("profile_sessions"),
		rates:    db.Collection("profile_rate_limits"),
		events:   db.Collection("association_events"),
	}
}

func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	expire := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	for _, c := range []*mongo.Collection{r.links, r.sessions, r.rates} {
		if _, err := c.Indexes().CreateOne(ctx, expire); err != nil {
			return fmt.Errorf("failed to create TTL index on %s: %w", c.Name(), err)
		}
	}
	_, err := r.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "idempotency_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "association_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create association event indexes: %w", err)
	}
	return nil
}

func (r *ProfileRepository) CreateLink(ctx context.Context, link models.ProfileLink) error {
	if _, err := r.links.InsertOne(ctx, link); err != nil {
		return fmt.Errorf("failed to store profile link: %w", err)
	}
	return nil
}

// UseLink marks the link used in the same update that checks it, so a
// token opens at most one session.
func (r *ProfileRepository) UseLink(ctx context.Context, tokenHash string, now time.Time) (models.ProfileLink, error) {
	filter := bson.M{
		"_id":        tokenHash,
		"used_at":    bson.M{"$exists": false},
		"expires_at": bson.M{"$gt": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var link models.ProfileLink
	err := r.links.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"used_at": now}}, opts).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return link, models.ErrNotFound
	}
	if err != nil {
		return link, fmt.Errorf("failed to use profile link: %w", err)
	}
	return link, nil
}

func (r *ProfileRepository) CreateSession(ctx context.Context, s models.ProfileSession) error {
	if _, err := r.sessions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to store profile session: %w", err)
	}
	return nil
}

func (r *ProfileRepository) FindSession(ctx context.Context, idHash string, now time.Time) (models.ProfileSession, error) {
	var s models.ProfileSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": idHash, "expires_at": bson.M{"$gt": now}}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s, models.ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("failed to retrieve profile session: %w", err)
	}
	return s, nil
}

func (r *ProfileRepository) TouchSession(ctx context.Context, idHash string, now time.Time) error {
	res, err := r.sessions.UpdateOne(ctx, bson.M{"_id": idHash}, bson.M{"$set": bson.M{"last_seen_at": now}})
	if err != nil {
		return fmt.Errorf("failed to touch profile session: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) Hit(ctx context.Context, key string, expiresAt time.Time) (int, error) {
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"expires_at": expiresAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Count int `bson:"count"`
	}
	if err := r.rates.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&counter); err != nil {
		return 0, fmt.Errorf("failed to count profile request: %w", err)
	}
	return counter.Count, nil
}

func (r *ProfileRepository) HasEvent(ctx context.Context, idempotencyKey string) (bool, error) {
	n, err := r.events.CountDocuments(ctx, bson.M{"idempotency_key": idempotencyKey}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up association event: %w", err)
	}
	return n > 0, nil
}

func (r *ProfileRepository) InsertEvent(ctx context.Context, e *models.AssociationEvent) (bool, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := r.events.InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert association event: %w", err)
	}
	return true, nil
}

func (r *ProfileRepository) ListEvents(ctx context.Context, associationID primitive.ObjectID) ([]models.AssociationEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.events.Find(ctx, bson.M{"association_id": associationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve association events: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.AssociationEvent{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode association events: %w", err)
	}
	return out, nil
}
