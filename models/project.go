package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Project struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	Progress    int                `json:"progress" bson:"progress"`
	IsPublic    bool               `json:"isPublic" bson:"is_public"`
	PublicID    string             `json:"publicId,omitempty" bson:"public_id,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}
