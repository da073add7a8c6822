package finance

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadySynced means a revenue row for the source appointment exists,
// detected by the unique index when two syncs race.
var ErrAlreadySynced = errors.New("appointment already synced")

type Repository interface {
	Insert(ctx context.Context, transaction Transaction) error
	ListInRange(ctx context.Context, from, to string) ([]Transaction, error)
	// SyncedSourceIDs reports which of the given appointment ids already
	// have a revenue transaction.
	SyncedSourceIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, transaction Transaction) error {
	_, err := r.col.InsertOne(ctx, transaction)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadySynced
	}
	return err
}

func (r *MongoRepository) ListInRange(ctx context.Context, from, to string) ([]Transaction, error) {
	query := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Transaction, 0)
	for cursor.Next(ctx) {
		var transaction Transaction
		if err := cursor.Decode(&transaction); err != nil {
			return nil, err
		}
		items = append(items, transaction)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) SyncedSourceIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	synced := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return synced, nil
	}

	query := bson.M{"sourceAppointmentId": bson.M{"$in": ids}}
	opts := options.Find().SetProjection(bson.M{"sourceAppointmentId": 1})

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			SourceAppointmentID string `bson:"sourceAppointmentId"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		synced[row.SourceAppointmentID] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return synced, nil
}
