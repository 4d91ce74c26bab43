package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Package categories.
const (
	CategoryWash        = "wash"
	CategoryDryClean    = "dry_clean"
	CategoryIron        = "iron"
	CategoryWashAndIron = "wash_and_iron"
	CategorySpecial     = "special"
)

// Pricing units.
const (
	UnitKg   = "kg"
	UnitItem = "item"
	UnitLoad = "load"
)

// Package is a laundry service offering that orders are priced from.
type Package struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Slug            string             `bson:"slug" json:"slug"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Category        string             `bson:"category" json:"category"`
	Unit            string             `bson:"unit" json:"unit"`
	Price           float64            `bson:"price" json:"price"`
	TurnaroundHours int                `bson:"turnaroundHours" json:"turnaroundHours"`
	Features        StringList         `bson:"features" json:"features"`
	IsActive        bool               `bson:"isActive" json:"isActive"`
	DeletedAt       *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
