package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileAction is a reply a charity gives on its self-service page. The
// association's stage takes the name of the last recorded action.
type ProfileAction string

const (
	ProfileInterested  ProfileAction = "interested"
	ProfileRequestCall ProfileAction = "request_call"
	ProfileNotNow      ProfileAction = "not_now"
)

func (a ProfileAction) Valid() bool {
	switch a {
	case ProfileInterested, ProfileRequestCall, ProfileNotNow:
		return true
	}
	return false
}

// ProfileLink is a one-time link sent to a charity. Only the token's hash
// is stored.
type ProfileLink struct {
	TokenHash     string             `json:"-" bson:"_id"`
	AssociationID primitive.ObjectID `json:"associationId" bson:"association_id"`
	ExpiresAt     time.Time          `json:"expiresAt" bson:"expires_at"`
	UsedAt        *time.Time         `json:"usedAt,omitempty" bson:"used_at,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"created_at"`
}

// ProfileSession is opened by a link and identified by the hash of the
// cookie value.
type ProfileSession struct {
	IDHash        string             `json:"-" bson:"_id"`
	AssociationID primitive.ObjectID `json:"associationId" bson:"association_id"`
	ExpiresAt     time.Time          `json:"expiresAt" bson:"expires_at"`
	LastSeenAt    time.Time          `json:"lastSeenAt" bson:"last_seen_at"`
}

type AssociationEvent struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AssociationID  primitive.ObjectID `json:"associationId" bson:"association_id"`
	Action         ProfileAction      `json:"action" bson:"action"`
	Stage          ProfileAction      `json:"stage" bson:"stage"`
	Source         string             `json:"source" bson:"source"`
	IdempotencyKey string             `json:"-" bson:"idempotency_key"`
	IP             string             `json:"ip" bson:"ip"`
	UserAgent      string             `json:"userAgent" bson:"user_agent"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}
