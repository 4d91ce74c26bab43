package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses, in lifecycle order.
const (
	OrderPending        = "pending"
	OrderConfirmed      = "confirmed"
	OrderPickedUp       = "picked_up"
	OrderProcessing     = "processing"
	OrderReady          = "ready"
	OrderOutForDelivery = "out_for_delivery"
	OrderDelivered      = "delivered"
	OrderCancelled      = "cancelled"
)

const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

// OrderItem is a priced line, snapshotted from the package at order time.
type OrderItem struct {
	PackageID primitive.ObjectID `bson:"packageId" json:"packageId"`
	Name      string             `bson:"name" json:"name"`
	Unit      string             `bson:"unit" json:"unit"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  float64            `bson:"quantity" json:"quantity"`
}

// StatusChange records one transition in an order's lifecycle.
type StatusChange struct {
	Status string             `bson:"status" json:"status"`
	At     time.Time          `bson:"at" json:"at"`
	By     primitive.ObjectID `bson:"by" json:"by"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Items         []OrderItem        `bson:"items" json:"items"`
	TotalPrice    float64            `bson:"totalPrice" json:"totalPrice"`
	PickupAddress Address            `bson:"pickupAddress" json:"pickupAddress"`
	PickupAt      time.Time          `bson:"pickupAt" json:"pickupAt"`
	DeliveryAt    *time.Time         `bson:"deliveryAt,omitempty" json:"deliveryAt,omitempty"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	Status        string             `bson:"status" json:"status"`
	StatusHistory []StatusChange     `bson:"statusHistory" json:"statusHistory"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
