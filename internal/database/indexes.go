package database

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureIndexes(db *mongo.Database, collection string, models []mongo.IndexModel, log logrus.FieldLogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.WithError(err).WithField("collection", collection).Warn("index creation failed")
		return err
	}
	log.WithFields(logrus.Fields{"collection": collection, "indexes": names}).Info("indexes ensured")
	return nil
}

func EnsureUserIndexes(db *mongo.Database, log logrus.FieldLogger) error {
	return ensureIndexes(db, "users", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "refreshTokens.tokenHash", Value: 1}},
			Options: options.Index().SetName("refresh_token_hash"),
		},
	}, log)
}

func EnsurePackageIndexes(db *mongo.Database, log logrus.FieldLogger) error {
	return ensureIndexes(db, "packages", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName("slug_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "category", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("active_category_price"),
		},
	}, log)
}

func EnsureOrderIndexes(db *mongo.Database, log logrus.FieldLogger) error {
	return ensureIndexes(db, "orders", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("userId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("status_createdAt"),
		},
	}, log)
}

func EnsureContactIndexes(db *mongo.Database, log logrus.FieldLogger) error {
	return ensureIndexes(db, "contacts", []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
		{
			Keys:    bson.D{{Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("isRead_createdAt"),
		},
	}, log)
}

// EnsureIndexes creates every index the stores rely on. Failures are logged
// and do not stop the others.
func EnsureIndexes(db *mongo.Database, log logrus.FieldLogger) {
	log = log.WithField("area", "database")
	for _, ensure := range []func(*mongo.Database, logrus.FieldLogger) error{
		EnsureUserIndexes,
		EnsurePackageIndexes,
		EnsureOrderIndexes,
		EnsureContactIndexes,
	} {
		_ = ensure(db, log)
	}
}
