package models

import "time"

// Product is read-only inside this module: catalog CRUD lives elsewhere.
// Order creation reads the live price and stock flag from here.
type Product struct {
	ID         string    `json:"productId" bson:"_id"`
	Name       string    `json:"name" bson:"name"`
	Price      float64   `json:"price" bson:"price"`
	OutOfStock bool      `json:"outOfStock" bson:"outofstock"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdat"`
}

// User is read-only inside this module: the engine only needs the customer
// e-mail for gateway initialization.
type User struct {
	ID    string `json:"userId" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}
