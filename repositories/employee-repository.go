package repositories

import (
	"context"
	"errors"
	"fmt"

	"crm-project/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EmployeeRepository struct {
	collection *mongo.Collection
}

func NewEmployeeRepository(db *mongo.Database) *EmployeeRepository {
	return &EmployeeRepository{collection: db.Collection("employees")}
}

// EnsureIndexes makes username and email unique.
func (r *EmployeeRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create employee indexes: %w", err)
	}
	return nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]models.Employee, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve employees: %w", err)
	}
	defer cursor.Close(ctx)

	employees := []models.Employee{}
	if err := cursor.All(ctx, &employees); err != nil {
		return nil, fmt.Errorf("failed to decode employees: %w", err)
	}
	return employees, nil
}

func (r *EmployeeRepository) Get(ctx context.Context, id primitive.ObjectID) (models.Employee, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *EmployeeRepository) FindByUsername(ctx context.Context, username string) (models.Employee, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (models.Employee, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *EmployeeRepository) findOne(ctx context.Context, filter bson.M) (models.Employee, error) {
	var e models.Employee
	err := r.collection.FindOne(ctx, filter).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return e, models.ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to retrieve employee: %w", err)
	}
	return e, nil
}

func (r *EmployeeRepository) Insert(ctx context.Context, e *models.Employee) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

// Update writes the profile fields; the password hash is left alone.
func (r *EmployeeRepository) Update(ctx context.Context, e models.Employee) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": e.ID}, bson.M{"$set": bson.M{
		"name":       e.Name,
		"username":   e.Username,
		"email":      e.Email,
		"role":       e.Role,
		"avatar_url": e.AvatarURL,
	}})
	if err != nil {
		return fmt.Errorf("failed to update employee %s: %w", e.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
