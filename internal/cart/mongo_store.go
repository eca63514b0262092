package cart

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pkgerrors "github.com/angelmondragon/threadhouse-backend/pkg/errors"
)

type mongoCart struct {
	ID         string               `bson:"_id"`
	UserID     string               `bson:"user_id"`
	Items      []mongoItem          `bson:"items"`
	TotalPrice primitive.Decimal128 `bson:"total_price"`
	Version    int64                `bson:"version"`
	CreatedAt  time.Time            `bson:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at"`
}

type mongoItem struct {
	ProductID    string               `bson:"product_id"`
	Quantity     int                  `bson:"quantity"`
	Size         string               `bson:"size"`
	Color        string               `bson:"color"`
	GiftWrapping bool                 `bson:"gift_wrapping"`
	UnitPrice    primitive.Decimal128 `bson:"unit_price"`
	Name         string               `bson:"name"`
	Images       []string             `bson:"images"`
	LineTotal    primitive.Decimal128 `bson:"line_total"`
	AddedAt      time.Time            `bson:"added_at"`
}

type mongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore builds the document-database cart store.
func NewMongoStore(collection *mongo.Collection) Store {
	return &mongoStore{collection: collection}
}

// EnsureMongoIndexes creates the unique user_id index the conditional upsert relies on.
func EnsureMongoIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("carts_user_id_key"),
	})
	if err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}
	return nil
}

func (s *mongoStore) FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	var doc mongoCart
	err := s.collection.FindOne(ctx, bson.M{"user_id": userID.String()}).Decode(&doc)
	if err != nil {
		if stdErrors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return fromDocument(doc)
}

// Save upserts on (user_id, version). A stale version misses the filter and the
// upsert then collides with the unique user_id index, which surfaces as CONFLICT.
func (s *mongoStore) Save(ctx context.Context, cart *Cart) (*Cart, error) {
	doc, err := toDocument(cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	now := time.Now().UTC()
	expected := cart.Version
	doc.Version = expected + 1
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	filter := bson.M{"user_id": doc.UserID, "version": expected}
	update := bson.M{
		"$set": bson.M{
			"items":       doc.Items,
			"total_price": doc.TotalPrice,
			"version":     doc.Version,
			"updated_at":  doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":        doc.ID,
			"created_at": doc.CreatedAt,
		},
	}
	res, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart version changed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart version changed")
	}
	return fromDocument(doc)
}

func toDocument(c *Cart) (mongoCart, error) {
	total, err := toDecimal128(c.TotalPrice)
	if err != nil {
		return mongoCart{}, err
	}
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	items := make([]mongoItem, 0, len(c.Items))
	for _, item := range c.Items {
		unit, err := toDecimal128(item.UnitPrice)
		if err != nil {
			return mongoCart{}, err
		}
		line, err := toDecimal128(item.LineTotal)
		if err != nil {
			return mongoCart{}, err
		}
		items = append(items, mongoItem{
			ProductID:    item.ProductID.String(),
			Quantity:     item.Quantity,
			Size:         item.Size,
			Color:        item.Color,
			GiftWrapping: item.GiftWrapping,
			UnitPrice:    unit,
			Name:         item.Name,
			Images:       item.Images,
			LineTotal:    line,
			AddedAt:      item.AddedAt,
		})
	}
	return mongoCart{
		ID:         id.String(),
		UserID:     c.UserID.String(),
		Items:      items,
		TotalPrice: total,
		Version:    c.Version,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}, nil
}

func fromDocument(doc mongoCart) (*Cart, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart id")
	}
	userID, err := uuid.Parse(doc.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart user id")
	}
	total, err := fromDecimal128(doc.TotalPrice)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart total")
	}
	items := make([]LineItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode product id")
		}
		unit, err := fromDecimal128(item.UnitPrice)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode unit price")
		}
		line, err := fromDecimal128(item.LineTotal)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode line total")
		}
		items = append(items, LineItem{
			ProductID:    productID,
			Quantity:     item.Quantity,
			Size:         item.Size,
			Color:        item.Color,
			GiftWrapping: item.GiftWrapping,
			UnitPrice:    unit,
			Name:         item.Name,
			Images:       item.Images,
			LineTotal:    line,
			AddedAt:      item.AddedAt,
		})
	}
	return &Cart{
		ID:         id,
		UserID:     userID,
		Items:      items,
		TotalPrice: total,
		Version:    doc.Version,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}
