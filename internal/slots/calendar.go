package slots

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"barberbook-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrSlotTaken is returned by Reserve when the slot is not in the open set,
// either because it never existed or because another booking got there first.
var ErrSlotTaken = errors.New("slot already taken")

// Day is one calendar date's remaining open time labels, kept in ascending
// clock order.
type Day struct {
	Date string   `bson:"_id" json:"date"`
	Open []string `bson:"open" json:"open"`
}

// Calendar is the source of truth for "is this slot bookable right now".
// Every mutation is a single-document atomic update, which is what makes
// Reserve safe under concurrent bookings across server instances.
type Calendar struct {
	col *mongo.Collection
}

func NewCalendar(col *mongo.Collection) *Calendar {
	return &Calendar{col: col}
}

func (c *Calendar) OpenSlots(ctx context.Context, date string) ([]string, error) {
	var day Day
	err := c.col.FindOne(ctx, bson.M{"_id": date}).Decode(&day)
	if err == mongo.ErrNoDocuments {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if day.Open == nil {
		return []string{}, nil
	}
	return day.Open, nil
}

func (c *Calendar) OpenDates(ctx context.Context, from string, count int) ([]Day, error) {
	filter := bson.M{
		"_id":  bson.M{"$gte": from},
		"open": bson.M{"$exists": true, "$ne": bson.A{}},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(count))

	cursor, err := c.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	days := make([]Day, 0, count)
	for cursor.Next(ctx) {
		var day Day
		if err := cursor.Decode(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// Reserve removes timeStr from the date's open set. The filter requires the
// label to still be present, so check-and-remove happens in one atomic
// document update; concurrent callers for the last copy of a slot cannot
// both succeed.
func (c *Calendar) Reserve(ctx context.Context, date, timeStr string) error {
	filter := bson.M{"_id": date, "open": timeStr}
	update := bson.M{"$pull": bson.M{"open": timeStr}}

	err := c.col.FindOneAndUpdate(ctx, filter, update).Err()
	if err == mongo.ErrNoDocuments {
		return ErrSlotTaken
	}
	return err
}

// Release re-adds timeStr in sorted position. Idempotent: a label that is
// already open is left alone, and releasing onto an unknown date creates it.
func (c *Calendar) Release(ctx context.Context, date, timeStr string) error {
	filter := bson.M{"_id": date, "open": bson.M{"$ne": timeStr}}
	update := bson.M{"$push": bson.M{"open": bson.M{"$each": bson.A{timeStr}, "$sort": 1}}}

	_, err := c.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// The date exists and already lists this label; the upsert lost to it.
		return nil
	}
	return err
}

// SeedWindow creates open-slot documents for a rolling window of days days
// starting at from, skipping closedWeekday (negative disables the skip).
// Existing dates are never touched, so reseeding an active window cannot
// resurrect reserved slots. Returns the number of dates created.
func (c *Calendar) SeedWindow(ctx context.Context, from time.Time, days int, open []string, closedWeekday int) (int, error) {
	// Labels reach here untyped from env config as well as request bodies.
	for _, label := range open {
		if !schedule.ValidClock(label) {
			return 0, fmt.Errorf("invalid slot label %q", label)
		}
	}

	labels := make([]string, len(open))
	copy(labels, open)
	sort.Strings(labels)

	created := 0
	for _, date := range schedule.WindowDates(from, days, closedWeekday) {
		res, err := c.col.UpdateOne(ctx,
			bson.M{"_id": date},
			bson.M{"$setOnInsert": bson.M{"open": labels}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return created, err
		}
		if res.UpsertedCount > 0 {
			created++
		}
	}
	return created, nil
}
