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

type AssociationRepository struct {
	collection *mongo.Collection
}

func NewAssociationRepository(db *mongo.Database) *AssociationRepository {
	return &AssociationRepository{collection: db.Collection("associations")}
}

func (r *AssociationRepository) List(ctx context.Context) ([]models.Association, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve associations: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Association{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode associations: %w", err)
	}
	return out, nil
}

func (r *AssociationRepository) Get(ctx context.Context, id primitive.ObjectID) (models.Association, error) {
	var a models.Association
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return a, models.ErrNotFound
	}
	if err != nil {
		return a, fmt.Errorf("failed to retrieve association %s: %w", id.Hex(), err)
	}
	return a, nil
}

// InsertMany assigns ids and stores the records in one call.
func (r *AssociationRepository) InsertMany(ctx context.Context, records []models.Association) ([]models.Association, error) {
	if len(records) == 0 {
		return records, nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		if records[i].ID.IsZero() {
			records[i].ID = primitive.NewObjectID()
		}
		docs[i] = records[i]
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to insert associations: %w", err)
	}
	return records, nil
}

func (r *AssociationRepository) Update(ctx context.Context, a models.Association) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("failed to update association %s: %w", a.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetStatus moves every id to status. A nil rate removes the stored rate.
func (r *AssociationRepository) SetStatus(ctx context.Context, ids []primitive.ObjectID, status models.AssociationStatus, rate *int, now time.Time) (int64, error) {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": now}}
	if rate != nil {
		update["$set"].(bson.M)["response_rate"] = *rate
	} else {
		update["$unset"] = bson.M{"response_rate": ""}
	}
	res, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, update)
	if err != nil {
		return 0, fmt.Errorf("failed to move associations: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *AssociationRepository) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete associations: %w", err)
	}
	return res.DeletedCount, nil
}
