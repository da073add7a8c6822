package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Services     *mongo.Collection
	Appointments *mongo.Collection
	SlotDays     *mongo.Collection
	LoyaltyCards *mongo.Collection
	Transactions *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Services:     db.Collection("services"),
		Appointments: db.Collection("appointments"),
		SlotDays:     db.Collection("slot_days"),
		LoyaltyCards: db.Collection("loyalty_cards"),
		Transactions: db.Collection("transactions"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := cols.Services.Indexes().CreateMany(indexTimeout, serviceIndexes()); err != nil {
		return err
	}
	if _, err := cols.Appointments.Indexes().CreateMany(indexTimeout, appointmentIndexes()); err != nil {
		return err
	}
	if _, err := cols.Transactions.Indexes().CreateMany(indexTimeout, transactionIndexes()); err != nil {
		return err
	}
	return nil
}

func serviceIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
}

// A slot may be held by at most one live appointment. The partial filter
// keeps cancelled ones out so the slot can be rebooked after a release;
// partial-index filters only allow equality-class operators, hence $in over
// the live statuses rather than $ne cancelled.
func appointmentIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": bson.A{"pending", "confirmed"}}}),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}},
		},
	}
}

func transactionIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "sourceAppointmentId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"sourceAppointmentId": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "date", Value: 1}},
		},
	}
}
