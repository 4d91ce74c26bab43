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

const contactsCollection = "contacts"

type MongoContacts struct {
	coll *mongo.Collection
}

func NewMongoContacts(db *mongo.Database) *MongoContacts {
	return &MongoContacts{coll: db.Collection(contactsCollection)}
}

func (s *MongoContacts) Create(ctx context.Context, msg *models.ContactMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, msg)
	return err
}

func (s *MongoContacts) List(ctx context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error) {
	query := bson.M{}
	if filter.UnreadOnly {
		query["isRead"] = false
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

	messages := make([]models.ContactMessage, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (s *MongoContacts) MarkRead(ctx context.Context, id primitive.ObjectID) (*models.ContactMessage, error) {
	var updated models.ContactMessage
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isRead": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoContacts) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
