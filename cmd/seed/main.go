package main

import (
	"context"
	"log"
	"time"

	"barberbook-backend/internal/config"
	"barberbook-backend/internal/db"
	"barberbook-backend/internal/slots"
	"barberbook-backend/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedService struct {
	Name            string
	Description     string
	Price           int
	DurationMinutes int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Fatal(err)
	}

	services := []seedService{
		{Name: "Haircut", Description: "Classic cut with clippers and scissors, finished with a hot towel.", Price: 5000, DurationMinutes: 30},
		{Name: "Beard Trim", Description: "Shape and line-up with razor finish.", Price: 3000, DurationMinutes: 20},
		{Name: "Haircut and Beard", Description: "Full cut plus beard shaping in one sitting.", Price: 7000, DurationMinutes: 50},
		{Name: "Kids Haircut", Description: "Cut for children up to 12 years old.", Price: 4000, DurationMinutes: 30},
		{Name: "Head Shave", Description: "Full razor shave with hot lather.", Price: 4500, DurationMinutes: 30},
	}

	now := time.Now().In(cfg.Timezone)
	for _, svc := range services {
		slug := utils.Slugify(svc.Name)
		filter := bson.M{"slug": slug}
		update := bson.M{
			"$setOnInsert": bson.M{
				"_id":             primitive.NewObjectID().Hex(),
				"name":            svc.Name,
				"description":     svc.Description,
				"price":           svc.Price,
				"durationMinutes": svc.DurationMinutes,
				"slug":            slug,
				"active":          true,
				"createdAt":       now,
				"updatedAt":       now,
			},
		}

		_, err := cols.Services.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err != nil {
			log.Fatalf("seed error for %s: %v", svc.Name, err)
		}
	}

	calendar := slots.NewCalendar(cols.SlotDays)
	created, err := calendar.SeedWindow(ctx, now, cfg.BookingWindowDays, cfg.DaySlots, cfg.ClosedWeekday)
	if err != nil {
		log.Fatalf("seed slots error: %v", err)
	}

	log.Printf("seed completed: %d services, %d slot days created", len(services), created)
}
