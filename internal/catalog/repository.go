package catalog

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound   = errors.New("service not found")
	ErrSlugExists = errors.New("service slug already exists")
)

type Repository interface {
	Create(ctx context.Context, service Service) error
	List(ctx context.Context, activeOnly bool) ([]Service, error)
	GetByID(ctx context.Context, id string) (Service, error)
	Update(ctx context.Context, service Service) (Service, error)
	Delete(ctx context.Context, id string) error
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, service Service) error {
	_, err := r.col.InsertOne(ctx, service)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugExists
	}
	return err
}

func (r *MongoRepository) List(ctx context.Context, activeOnly bool) ([]Service, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Service, 0)
	for cursor.Next(ctx) {
		var service Service
		if err := cursor.Decode(&service); err != nil {
			return nil, err
		}
		items = append(items, service)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Service, error) {
	var service Service
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&service); err != nil {
		if err == mongo.ErrNoDocuments {
			return Service{}, ErrNotFound
		}
		return Service{}, err
	}
	return service, nil
}

func (r *MongoRepository) Update(ctx context.Context, service Service) (Service, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"name":            service.Name,
			"slug":            service.Slug,
			"description":     service.Description,
			"price":           service.Price,
			"durationMinutes": service.DurationMinutes,
			"active":          service.Active,
			"updatedAt":       service.UpdatedAt,
		},
	}

	var updated Service
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": service.ID}, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return Service{}, ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return Service{}, ErrSlugExists
	}
	if err != nil {
		return Service{}, err
	}
	return updated, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
