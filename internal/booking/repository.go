package booking

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ListFilter struct {
	Date   string
	Status Status
}

type Repository interface {
	Insert(ctx context.Context, appointment Appointment) error
	GetByID(ctx context.Context, id string) (Appointment, error)
	// Transition moves the appointment to target iff its current status
	// allows it, in one conditional update. ErrNotFound means no appointment;
	// ErrIllegalTransition means it exists but the move is not legal.
	Transition(ctx context.Context, id string, target Status) (Appointment, error)
	SetReminderSent(ctx context.Context, id string) (Appointment, error)
	List(ctx context.Context, filter ListFilter, limit int64) ([]Appointment, error)
	ListByEmail(ctx context.Context, email string, limit int64) ([]Appointment, error)
	ListConfirmedInRange(ctx context.Context, from, to string) ([]Appointment, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Insert(ctx context.Context, appointment Appointment) error {
	_, err := r.col.InsertOne(ctx, appointment)
	if mongo.IsDuplicateKeyError(err) {
		// The partial unique index on (date,time) caught a double-book that
		// slipped past the calendar; the slot is in use either way.
		return ErrSlotUnavailable
	}
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Appointment, error) {
	var appointment Appointment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment); err != nil {
		if err == mongo.ErrNoDocuments {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return appointment, nil
}

func (r *MongoRepository) Transition(ctx context.Context, id string, target Status) (Appointment, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$in": statusesAllowing(target)}}
	update := bson.M{"$set": bson.M{"status": target}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Appointment
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		// Either the id is unknown or the current status forbids the move.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Appointment{}, getErr
		}
		return Appointment{}, ErrIllegalTransition
	}
	if err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

func (r *MongoRepository) SetReminderSent(ctx context.Context, id string) (Appointment, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": StatusCancelled}}
	update := bson.M{"$set": bson.M{"reminderSent": true}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Appointment
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return Appointment{}, getErr
		}
		return Appointment{}, ErrIllegalTransition
	}
	if err != nil {
		return Appointment{}, err
	}
	return updated, nil
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter, limit int64) ([]Appointment, error) {
	query := bson.M{}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}).
		SetLimit(limit)
	return r.find(ctx, query, opts)
}

func (r *MongoRepository) ListByEmail(ctx context.Context, email string, limit int64) ([]Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}}).
		SetLimit(limit)
	return r.find(ctx, bson.M{"email": email}, opts)
}

func (r *MongoRepository) ListConfirmedInRange(ctx context.Context, from, to string) ([]Appointment, error) {
	query := bson.M{
		"status": StatusConfirmed,
		"date":   bson.M{"$gte": from, "$lte": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return r.find(ctx, query, opts)
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Appointment, error) {
	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Appointment, 0)
	for cursor.Next(ctx) {
		var appointment Appointment
		if err := cursor.Decode(&appointment); err != nil {
			return nil, err
		}
		items = append(items, appointment)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
