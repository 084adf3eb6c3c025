package models

import (
	"crm-project/backend/permissions"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Employee struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email" bson:"email"`
	AvatarURL    string             `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	Role         permissions.Role   `json:"role" bson:"role"`
	PasswordHash string             `json:"-" bson:"password_hash"`
}

// PublicEmployee is what anonymous viewers of a shared project see.
type PublicEmployee struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	AvatarURL string             `json:"avatarUrl,omitempty"`
}

func (e Employee) Public() PublicEmployee {
	return PublicEmployee{ID: e.ID, Name: e.Name, AvatarURL: e.AvatarURL}
}
