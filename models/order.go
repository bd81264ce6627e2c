package models

import "time"

// OrderStatus is the fulfilment-side lifecycle stage of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment-side lifecycle stage, independent of but
// causally linked to the order status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// OrderItem is an immutable line item snapshotted at order creation.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productid"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Price     float64 `json:"price" bson:"price"` // unit price at time of order
	Name      string  `json:"name" bson:"name"`
}

type ShippingAddress struct {
	FirstName string `json:"firstName" bson:"firstname"`
	LastName  string `json:"lastName" bson:"lastname"`
	Address   string `json:"address" bson:"address"`
	City      string `json:"city" bson:"city"`
	State     string `json:"state" bson:"state"`
	Country   string `json:"country" bson:"country"`
	ZipCode   string `json:"zipCode" bson:"zipcode"`
	Phone     string `json:"phone" bson:"phone"`
}

// Validate checks that every address field is present.
func (a ShippingAddress) Validate() bool {
	return a.FirstName != "" && a.LastName != "" && a.Address != "" &&
		a.City != "" && a.State != "" && a.Country != "" &&
		a.ZipCode != "" && a.Phone != ""
}

// Order is created once from a non-empty cart. Items, totalamount and the
// shipping address never change after creation; only the status pair, the
// payment reference and the payment URL are mutable.
type Order struct {
	ID               string          `json:"orderId" bson:"_id"`
	UserID           string          `json:"userId" bson:"userid"`
	Items            []OrderItem     `json:"items" bson:"items"`
	TotalAmount      float64         `json:"totalAmount" bson:"totalamount"`
	ShippingAddress  ShippingAddress `json:"shippingAddress" bson:"shippingaddress"`
	OrderStatus      OrderStatus     `json:"orderStatus" bson:"orderstatus"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus" bson:"paymentstatus"`
	PaymentReference string          `json:"paymentReference" bson:"paymentreference"`
	PaymentMethod    string          `json:"paymentMethod" bson:"paymentmethod"`
	PaymentURL       string          `json:"paymentUrl,omitempty" bson:"paymenturl,omitempty"`
	CreatedAt        time.Time       `json:"createdAt" bson:"createdat"`
	UpdatedAt        time.Time       `json:"updatedAt" bson:"updatedat"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	UserID        string
	OrderStatus   OrderStatus
	PaymentStatus PaymentStatus
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	Limit         int
}

// OrderSummary is the admin listing row: full item arrays are collapsed to
// a count.
type OrderSummary struct {
	ID            string        `json:"orderId"`
	UserID        string        `json:"userId"`
	Items         int           `json:"items"`
	TotalAmount   float64       `json:"totalAmount"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// OrderStats counts orders per fulfilment status.
type OrderStats struct {
	TotalOrders      int64 `json:"totalOrders"`
	PendingOrders    int64 `json:"pendingOrders"`
	ProcessingOrders int64 `json:"processingOrders"`
	ShippedOrders    int64 `json:"shippedOrders"`
	DeliveredOrders  int64 `json:"deliveredOrders"`
	CancelledOrders  int64 `json:"cancelledOrders"`
}
