package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"laundry/internal/models"
)

const ordersCollection = "orders"

type MongoOrders struct {
	coll *mongo.Collection
}

func NewMongoOrders(db *mongo.Database) *MongoOrders {
	return &MongoOrders{coll: db.Collection(ordersCollection)}
}

func (s *MongoOrders) Create(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, order)
	return err
}

func (s *MongoOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *MongoOrders) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["userId"] = *filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	applyPage(opts, filter.Page)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *MongoOrders) UpdateStatus(ctx context.Context, id primitive.ObjectID, from string, change models.StatusChange) (*models.Order, error) {
	set := bson.M{
		"status":    change.Status,
		"updatedAt": change.At,
	}
	if change.Status == models.OrderDelivered {
		set["deliveryAt"] = change.At
	}

	var updated models.Order
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":  set,
			"$push": bson.M{"statusHistory": change},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrVersionConflict
}

func (s *MongoOrders) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
