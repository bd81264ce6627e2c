package models

import "time"

// CartItem is a mutable cart line. Price is a snapshot of the unit price at
// the time the item was added; order creation re-reads the live price.
type CartItem struct {
	ProductID string    `json:"productId" bson:"productid"`
	Name      string    `json:"name" bson:"name"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	Price     float64   `json:"price" bson:"price"`
	AddedAt   time.Time `json:"addedAt" bson:"addedat"`
}

// Cart holds a user's pending selection. One cart per user; it is cleared,
// never deleted, when an order is created from it.
type Cart struct {
	ID          string     `json:"cartId" bson:"_id"`
	UserID      string     `json:"userId" bson:"userid"`
	Items       []CartItem `json:"items" bson:"items"`
	TotalAmount float64    `json:"totalAmount" bson:"totalamount"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdat"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedat"`
}

// RecomputeTotal derives totalamount from the current items. Called on
// every cart mutation before persisting.
func (c *Cart) RecomputeTotal() {
	var total float64
	for _, it := range c.Items {
		total += it.Price * float64(it.Quantity)
	}
	c.TotalAmount = total
}

// ItemCount is the summed quantity across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
