package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-tracker-service/internal/domain/entity"
	"flight-tracker-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// MongoFlightRepository implements FlightRepository
type MongoFlightRepository struct {
	collection *mongo.Collection
}

// NewMongoFlightRepository creates a new flight repository and ensures its indexes
func NewMongoFlightRepository(ctx context.Context, db *mongo.Database, collectionName string) (repository.FlightRepository, error) {
	collection := db.Collection(collectionName)

	// Text index backing free-text search on route and airline
	textIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "route", Value: "text"},
			{Key: "airline", Value: "text"},
		},
	}

	// Unique index on (route, airline, flightDate)
	uniqueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "route", Value: 1},
			{Key: "airline", Value: 1},
			{Key: "flightDate", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	// Index used by the tracker selection
	trackingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "trackingConfig.interval", Value: 1},
			{Key: "flightDate", Value: 1},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{textIndex, uniqueIndex, trackingIndex}); err != nil {
		return nil, mapError(fmt.Errorf("failed to create flight indexes: %w", err))
	}

	return &MongoFlightRepository{
		collection: collection,
	}, nil
}

// FindByIntervalAndFutureDate finds flights of a tracking class that have not departed yet
func (r *MongoFlightRepository) FindByIntervalAndFutureDate(ctx context.Context, interval entity.Interval, now time.Time) ([]*entity.Flight, error) {
	return r.find(ctx, bson.M{
		"trackingConfig.interval": interval,
		"flightDate":              bson.M{"$gt": now},
	})
}

// FindByTextOrAll runs a $text search, or returns every flight for an empty query
func (r *MongoFlightRepository) FindByTextOrAll(ctx context.Context, query string) ([]*entity.Flight, error) {
	filter := bson.M{}
	if query != "" {
		filter["$text"] = bson.M{"$search": query}
	}
	return r.find(ctx, filter)
}

// FindByRoute finds flights with exactly the given route
func (r *MongoFlightRepository) FindByRoute(ctx context.Context, route string) ([]*entity.Flight, error) {
	return r.find(ctx, bson.M{"route": route})
}

// FindAll returns every flight
func (r *MongoFlightRepository) FindAll(ctx context.Context) ([]*entity.Flight, error) {
	return r.find(ctx, bson.M{})
}

// FindByID finds a flight by id
func (r *MongoFlightRepository) FindByID(ctx context.Context, id string) (*entity.Flight, error) {
	var flight entity.Flight
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&flight)
	if err != nil {
		return nil, mapError(err)
	}
	return &flight, nil
}

// Insert stores a new flight and returns its id
func (r *MongoFlightRepository) Insert(ctx context.Context, flight *entity.Flight) (string, error) {
	if flight.ID == "" {
		flight.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, flight); err != nil {
		return "", mapError(err)
	}
	return flight.ID, nil
}

// ReplaceAll deletes every flight and inserts the given ones
func (r *MongoFlightRepository) ReplaceAll(ctx context.Context, flights []*entity.Flight) (int, error) {
	if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return 0, mapError(err)
	}
	if len(flights) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, len(flights))
	for i, flight := range flights {
		if flight.ID == "" {
			flight.ID = primitive.NewObjectID().Hex()
		}
		docs[i] = flight
	}

	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, mapError(err)
	}
	return len(result.InsertedIDs), nil
}

// Update applies field-level changes to a flight
func (r *MongoFlightRepository) Update(ctx context.Context, id string, changes entity.FlightChanges) error {
	set := bson.M{}
	if changes.Route != nil {
		set["route"] = *changes.Route
	}
	if changes.Airline != nil {
		set["airline"] = *changes.Airline
	}
	if changes.StartTracking != nil {
		set["trackingConfig.startTracking"] = *changes.StartTracking
	}
	if len(set) == 0 {
		return fmt.Errorf("%w: no fields to update", repository.ErrValidation)
	}

	return r.updateOne(ctx, id, bson.M{"$set": set})
}

// Delete removes a flight by id
func (r *MongoFlightRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
	}
	return nil
}

// AppendPriceSample pushes a sample onto the end of the price history
func (r *MongoFlightRepository) AppendPriceSample(ctx context.Context, id string, sample entity.PricePoint) error {
	return r.updateOne(ctx, id, bson.M{"$push": bson.M{"priceHistory": sample}})
}

// SetLastTracked updates the tracker bookkeeping timestamp
func (r *MongoFlightRepository) SetLastTracked(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"trackingConfig.lastTracked": at}})
}

func (r *MongoFlightRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapError(err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: no flight with id %s", repository.ErrNotFound, id)
	}
	return nil
}

func (r *MongoFlightRepository) find(ctx context.Context, filter bson.M) ([]*entity.Flight, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	flights := make([]*entity.Flight, 0)
	if err := cursor.All(ctx, &flights); err != nil {
		return nil, mapError(err)
	}
	return flights, nil
}

// mapError translates driver errors into repository error kinds
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: flight with same route, airline and flightDate exists", repository.ErrConflict)
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, topology.ErrServerSelectionTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	default:
		return err
	}
}
