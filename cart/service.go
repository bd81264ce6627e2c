// Package cart manages the per-user shopping cart that feeds the order
// lifecycle. One cart per user, lazily created, emptied but never deleted.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soko/apperrors"
	"soko/models"
	"soko/store"
)

type Store interface {
	GetOrCreate(ctx context.Context, userID string) (*models.Cart, error)
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Clear(ctx context.Context, userID string) error
}

type Catalog interface {
	FindProduct(ctx context.Context, productID string) (*models.Product, error)
}

// ItemIssue describes one cart line that would not survive checkout.
type ItemIssue struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name,omitempty"`
	Reason    string  `json:"reason"`
	OldPrice  float64 `json:"oldPrice,omitempty"`
	NewPrice  float64 `json:"newPrice,omitempty"`
}

// ValidationReport is the outcome of re-checking every cart line against
// the live catalog.
type ValidationReport struct {
	Valid  bool        `json:"valid"`
	Issues []ItemIssue `json:"issues"`
	Cart   models.Cart `json:"cart"`
}

type Service struct {
	carts   Store
	catalog Catalog
}

func NewService(carts Store, catalog Catalog) *Service {
	return &Service{carts: carts, catalog: catalog}
}

func (s *Service) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	return s.carts.GetOrCreate(ctx, userID)
}

// AddItem puts a product in the cart at the catalog's current price. Adding
// an already-present product merges quantities instead of duplicating the
// line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.BadRequest("Quantity must be at least 1")
	}

	product, err := s.catalog.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, err
	}
	if product.OutOfStock {
		return nil, apperrors.BadRequest(fmt.Sprintf("Product %s is out of stock", product.Name))
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity += quantity
			cart.Items[i].Price = product.Price
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
			AddedAt:   time.Now(),
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets the quantity of an existing line. Quantity zero removes
// the line.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 0 {
		return nil, apperrors.BadRequest("Quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	cart, err := s.requireCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = quantity
			if err := s.carts.Save(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
	}
	return nil, apperrors.NotFound("Item not found in cart")
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	cart, err := s.requireCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	kept := cart.Items[:0]
	removed := false
	for _, item := range cart.Items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return nil, apperrors.NotFound("Item not found in cart")
	}
	cart.Items = kept

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

// ItemCount returns the summed quantity across lines, for the header badge.
func (s *Service) ItemCount(ctx context.Context, userID string) (int, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

// Validate re-checks every line against the live catalog before checkout.
// Missing and out-of-stock products are reported; drifted prices are
// refreshed in place and reported so the client can surface the change.
func (s *Service) Validate(ctx context.Context, userID string) (*ValidationReport, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{Valid: true, Issues: []ItemIssue{}}
	drifted := false
	for i := range cart.Items {
		line := &cart.Items[i]
		product, err := s.catalog.FindProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				report.Valid = false
				report.Issues = append(report.Issues, ItemIssue{
					ProductID: line.ProductID,
					Name:      line.Name,
					Reason:    "product no longer exists",
				})
				continue
			}
			return nil, err
		}
		if product.OutOfStock {
			report.Valid = false
			report.Issues = append(report.Issues, ItemIssue{
				ProductID: line.ProductID,
				Name:      product.Name,
				Reason:    "out of stock",
			})
			continue
		}
		if product.Price != line.Price {
			report.Issues = append(report.Issues, ItemIssue{
				ProductID: line.ProductID,
				Name:      product.Name,
				Reason:    "price changed",
				OldPrice:  line.Price,
				NewPrice:  product.Price,
			})
			line.Price = product.Price
			drifted = true
		}
	}

	if drifted {
		if err := s.carts.Save(ctx, cart); err != nil {
			return nil, err
		}
	}
	report.Cart = *cart
	return report, nil
}

func (s *Service) requireCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("Cart not found")
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}
