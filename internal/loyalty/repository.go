package loyalty

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrCardNotFound      = errors.New("loyalty card not found")
	ErrCardExists        = errors.New("loyalty card already exists")
	ErrInsufficientStars = errors.New("not enough stars to redeem")
)

type Repository interface {
	Create(ctx context.Context, card Card) error
	GetByContact(ctx context.Context, contact string) (Card, error)
	List(ctx context.Context, limit, offset int64) ([]Card, int64, error)
	// AddStar increments stars by one, creating the card on first stamp.
	AddStar(ctx context.Context, contact, name string, now time.Time) (Card, error)
	// Redeem subtracts goal from stars in a single guarded update, so two
	// concurrent redemptions cannot both spend the same stars.
	Redeem(ctx context.Context, contact string, now time.Time) (Card, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, card Card) error {
	_, err := r.col.InsertOne(ctx, card)
	if mongo.IsDuplicateKeyError(err) {
		return ErrCardExists
	}
	return err
}

func (r *MongoRepository) GetByContact(ctx context.Context, contact string) (Card, error) {
	var card Card
	if err := r.col.FindOne(ctx, bson.M{"_id": contact}).Decode(&card); err != nil {
		if err == mongo.ErrNoDocuments {
			return Card{}, ErrCardNotFound
		}
		return Card{}, err
	}
	return card, nil
}

func (r *MongoRepository) List(ctx context.Context, limit, offset int64) ([]Card, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "stars", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := make([]Card, 0)
	for cursor.Next(ctx) {
		var card Card
		if err := cursor.Decode(&card); err != nil {
			return nil, 0, err
		}
		items = append(items, card)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoRepository) AddStar(ctx context.Context, contact, name string, now time.Time) (Card, error) {
	return upsertWithRetry(func() (Card, error) {
		return r.addStar(ctx, contact, name, now)
	})
}

// upsertWithRetry reruns an upsert that lost an insert race. Two first
// stamps for the same contact can both miss the filter and race the insert;
// the loser's duplicate key means the document now exists, so a second pass
// matches and increments it.
func upsertWithRetry(run func() (Card, error)) (Card, error) {
	card, err := run()
	if mongo.IsDuplicateKeyError(err) {
		return run()
	}
	return card, err
}

func (r *MongoRepository) addStar(ctx context.Context, contact, name string, now time.Time) (Card, error) {
	update := bson.M{
		"$inc": bson.M{"stars": 1, "lifetimeAppointments": 1},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"goal":      DefaultGoal,
			"createdAt": now,
		},
	}
	if name != "" {
		update["$set"].(bson.M)["name"] = name
	} else {
		update["$setOnInsert"].(bson.M)["name"] = ""
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var card Card
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": contact}, update, opts).Decode(&card); err != nil {
		return Card{}, err
	}
	return card, nil
}

func (r *MongoRepository) Redeem(ctx context.Context, contact string, now time.Time) (Card, error) {
	filter := bson.M{
		"_id":   contact,
		"$expr": bson.M{"$gte": bson.A{"$stars", "$goal"}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"stars":     bson.M{"$subtract": bson.A{"$stars", "$goal"}},
			"updatedAt": now,
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var card Card
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&card)
	if err == mongo.ErrNoDocuments {
		// Either no card or too few stars; look again to tell them apart.
		if _, getErr := r.GetByContact(ctx, contact); getErr != nil {
			return Card{}, getErr
		}
		return Card{}, ErrInsufficientStars
	}
	if err != nil {
		return Card{}, err
	}
	return card, nil
}
