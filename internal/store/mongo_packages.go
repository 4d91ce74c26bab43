package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"laundry/internal/models"
)

const packagesCollection = "packages"

type MongoPackages struct {
	coll *mongo.Collection
}

func NewMongoPackages(db *mongo.Database) *MongoPackages {
	return &MongoPackages{coll: db.Collection(packagesCollection)}
}

func (s *MongoPackages) Create(ctx context.Context, pkg *models.Package) error {
	if pkg.ID.IsZero() {
		pkg.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, pkg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *MongoPackages) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Package, error) {
	var pkg models.Package
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&pkg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pkg, nil
}

func (s *MongoPackages) FindActiveByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Package, error) {
	cursor, err := s.coll.Find(ctx, bson.M{
		"_id":      bson.M{"$in": ids},
		"isActive": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var found []models.Package
	if err := cursor.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.Package, len(found))
	for _, pkg := range found {
		byID[pkg.ID] = pkg
	}
	return byID, nil
}

func (s *MongoPackages) List(ctx context.Context, filter PackageFilter) ([]models.Package, int64, error) {
	query := bson.M{}
	if filter.ActiveOnly {
		query["isActive"] = true
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Search != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
	}

	total, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}, {Key: "createdAt", Value: -1}})
	applyPage(opts, filter.Page)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	packages := make([]models.Package, 0)
	if err := cursor.All(ctx, &packages); err != nil {
		return nil, 0, err
	}
	return packages, total, nil
}

func (s *MongoPackages) Update(ctx context.Context, id primitive.ObjectID, patch PackagePatch, now time.Time) (*models.Package, error) {
	set := bson.M{"updatedAt": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Unit != nil {
		set["unit"] = *patch.Unit
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.TurnaroundHours != nil {
		set["turnaroundHours"] = *patch.TurnaroundHours
	}
	if patch.Features != nil {
		set["features"] = models.StringList(patch.Features)
	}
	if patch.IsActive != nil {
		set["isActive"] = *patch.IsActive
		if *patch.IsActive {
			set["deletedAt"] = nil
		}
	}

	var updated models.Package
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &updated, nil
}

// Deactivate is a soft delete; existing orders keep referencing the package.
func (s *MongoPackages) Deactivate(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"isActive":  false,
		"deletedAt": now,
		"updatedAt": now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
