package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pribylovaa/go-car-collection/internal/models"
	"github.com/pribylovaa/go-car-collection/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type carDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Tags        []string           `bson:"tags"`
	ImageURLs   []string           `bson:"image_urls"`
	ImageCount  int                `bson:"image_count"`
	User        string             `bson:"user"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d carDoc) toModel() models.Car {
	return models.Car{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Tags:        d.Tags,
		ImageURLs:   d.ImageURLs,
		ImageCount:  d.ImageCount,
		OwnerID:     d.User,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// nonNil — пустой массив вместо null в документе.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (m *Mongo) CreateCar(ctx context.Context, car models.Car) (*models.Car, error) {
	const op = "storage/mongo/CreateCar"

	now := toMS(time.Now())
	doc := carDoc{
		ID:          primitive.NewObjectID(),
		Title:       car.Title,
		Description: car.Description,
		Tags:        nonNil(car.Tags),
		ImageURLs:   nonNil(car.ImageURLs),
		ImageCount:  len(car.ImageURLs),
		User:        car.OwnerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := m.cars.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	out := doc.toModel()
	return &out, nil
}

func (m *Mongo) CarByID(ctx context.Context, ownerID, id string) (*models.Car, error) {
	const op = "storage/mongo/CarByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc carDoc
	err = m.cars.FindOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: ownerID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	out := doc.toModel()
	return &out, nil
}

// ListCars — записи владельца, новые первыми.
// Поиск: регистронезависимый $regex по экранированной строке (без пользовательского синтаксиса).
func (m *Mongo) ListCars(ctx context.Context, ownerID, search string) ([]models.Car, error) {
	const op = "storage/mongo/ListCars"

	filter := bson.D{{Key: "user", Value: ownerID}}
	if s := strings.TrimSpace(search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: rx}},
			bson.D{{Key: "description", Value: rx}},
			bson.D{{Key: "tags", Value: rx}},
		}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := m.cars.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.Car, 0)
	for cur.Next(ctx) {
		var doc carDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		out = append(out, doc.toModel())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

func (m *Mongo) UpdateCar(ctx context.Context, car models.Car) (*models.Car, error) {
	const op = "storage/mongo/UpdateCar"

	oid, err := primitive.ObjectIDFromHex(car.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "title", Value: car.Title},
		{Key: "description", Value: car.Description},
		{Key: "tags", Value: nonNil(car.Tags)},
		{Key: "image_urls", Value: nonNil(car.ImageURLs)},
		{Key: "image_count", Value: len(car.ImageURLs)},
		{Key: "updated_at", Value: toMS(time.Now())},
	}}}

	var doc carDoc
	err = m.cars.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: car.OwnerID}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: update: %w", op, err)
	}

	out := doc.toModel()
	return &out, nil
}

func (m *Mongo) DeleteCar(ctx context.Context, ownerID, id string) error {
	const op = "storage/mongo/DeleteCar"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.cars.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}, {Key: "user", Value: ownerID}})
	if err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
