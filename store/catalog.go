package store

import (
	"context"
	"errors"
	"time"

	"soko/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CatalogStore is read-only: product CRUD belongs to the storefront, the
// lifecycle engine only checks price and availability.
type CatalogStore struct {
	col *mongo.Collection
}

func NewCatalogStore(col *mongo.Collection) *CatalogStore {
	return &CatalogStore{col: col}
}

func (s *CatalogStore) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := s.col.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CountProducts counts products created inside the window; nil bounds mean
// all-time.
func (s *CatalogStore) CountProducts(ctx context.Context, start, end *time.Time) (int64, error) {
	filter := bson.M{}
	if start != nil || end != nil {
		created := bson.M{}
		if start != nil {
			created["$gte"] = *start
		}
		if end != nil {
			created["$lte"] = *end
		}
		filter["createdat"] = created
	}
	return s.col.CountDocuments(ctx, filter)
}
