package store

import (
	"context"
	"errors"
	"time"

	"soko/db"
	"soko/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type CartStore struct {
	col *mongo.Collection
}

func NewCartStore(col *mongo.Collection) *CartStore {
	return &CartStore{col: col}
}

func (s *CartStore) FindByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := s.col.FindOne(ctx, bson.M{"userid": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetOrCreate lazily creates an empty cart on first access. The unique
// userid index resolves the create race: the loser re-reads.
func (s *CartStore) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	fresh := &models.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []models.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.col.InsertOne(ctx, fresh); err != nil {
		if db.IsDuplicateKeyError(err) {
			return s.FindByUser(ctx, userID)
		}
		return nil, err
	}
	return fresh, nil
}

// Save persists the whole cart document, recomputing the derived total
// first so it can never drift from the items.
func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	cart.RecomputeTotal()
	cart.UpdatedAt = time.Now()
	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear empties the cart without deleting it.
func (s *CartStore) Clear(ctx context.Context, userID string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"userid": userID},
		bson.M{"$set": bson.M{
			"items":       []models.CartItem{},
			"totalamount": float64(0),
			"updatedat":   time.Now(),
		}},
	)
	return err
}
