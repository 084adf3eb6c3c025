package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssociationStatus string

const (
	AssocNew          AssociationStatus = "new"
	AssocContacted    AssociationStatus = "contacted"
	AssocNotContacted AssociationStatus = "not_contacted"
	AssocResponseRate AssociationStatus = "response_rate"
)

func (s AssociationStatus) Valid() bool {
	switch s {
	case AssocNew, AssocContacted, AssocNotContacted, AssocResponseRate:
		return true
	}
	return false
}

type Association struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Phone          string             `json:"phone" bson:"phone"`
	City           string             `json:"city" bson:"city"`
	Region         string             `json:"region" bson:"region"`
	MainCategory   string             `json:"mainCategory" bson:"main_category"`
	SubCategory    string             `json:"subCategory" bson:"sub_category"`
	DonationLink   string             `json:"donationLink,omitempty" bson:"donation_link,omitempty"`
	TargetAudience string             `json:"targetAudience" bson:"target_audience"`
	ResponseStatus string             `json:"responseStatus" bson:"response_status"`
	Contact        string             `json:"contact,omitempty" bson:"contact,omitempty"`
	Email          string             `json:"email,omitempty" bson:"email,omitempty"`
	Website        string             `json:"website,omitempty" bson:"website,omitempty"`
	Status         AssociationStatus  `json:"status" bson:"status"`
	ResponseRate   *int               `json:"responseRate,omitempty" bson:"response_rate,omitempty"`
	TrustScore     int                `json:"trustScore" bson:"trust_score"`
	Stage          ProfileAction      `json:"stage,omitempty" bson:"stage,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updated_at"`
}

// AssociationStats counts associations per status.
type AssociationStats struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	Contacted    int `json:"contacted"`
	NotContacted int `json:"notContacted"`
	ResponseRate int `json:"responseRate"`
}
