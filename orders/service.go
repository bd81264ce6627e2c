// Package orders holds the order/payment lifecycle engine: cart-to-order
// conversion, payment initialization, webhook settlement, cancellation and
// the admin listing surface.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"soko/apperrors"
	"soko/gateway"
	"soko/models"
	"soko/store"
	"soko/utils"
)

// OrderStore is the slice of order persistence the engine needs. The Mongo
// implementation lives in soko/store.
type OrderStore interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	Find(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	SettlePayment(ctx context.Context, reference string, payment models.PaymentStatus, order *models.OrderStatus) (*models.Order, error)
	ReplaceReference(ctx context.Context, orderID, reference, paymentURL string) error
	SetPaymentURL(ctx context.Context, orderID, paymentURL string) error
	SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	Cancel(ctx context.Context, orderID, userID string) (bool, error)
	LastShippingAddress(ctx context.Context, userID string) (*models.ShippingAddress, error)
	CountByStatus(ctx context.Context) (*models.OrderStats, error)
}

type CartStore interface {
	FindByUser(ctx context.Context, userID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type CatalogStore interface {
	FindProduct(ctx context.Context, productID string) (*models.Product, error)
}

type UserStore interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// SettlementHook runs after an effective webhook transition, for side
// effects like confirmation mail or inventory adjustment. It must not
// influence the transition itself.
type SettlementHook func(ctx context.Context, order *models.Order, ev gateway.Event)

// PaymentStatusView is the public polling shape.
type PaymentStatusView struct {
	Reference     string               `json:"reference"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	IsPaid        bool                 `json:"isPaid"`
	IsFailed      bool                 `json:"isFailed"`
}

// Service is the lifecycle engine. All collaborators are injected; the
// service itself holds no per-request state.
type Service struct {
	orders  OrderStore
	carts   CartStore
	catalog CatalogStore
	users   UserStore

	gwLock     sync.RWMutex
	gateways   map[string]gateway.Gateway
	defaultGw  string
	settlement SettlementHook
}

func NewService(orders OrderStore, carts CartStore, catalog CatalogStore, users UserStore) *Service {
	return &Service{
		orders:   orders,
		carts:    carts,
		catalog:  catalog,
		users:    users,
		gateways: make(map[string]gateway.Gateway),
		settlement: func(_ context.Context, order *models.Order, _ gateway.Event) {
			log.Printf("order %s settled as %s", order.ID, order.PaymentStatus)
		},
	}
}

// RegisterGateway adds a provider adapter. The first registration becomes
// the default used when an order carries an unknown payment method label.
func (s *Service) RegisterGateway(gw gateway.Gateway) {
	s.gwLock.Lock()
	defer s.gwLock.Unlock()
	if len(s.gateways) == 0 {
		s.defaultGw = gw.Name()
	}
	s.gateways[gw.Name()] = gw
}

// SetSettlementHook replaces the post-settlement side-effect hook.
func (s *Service) SetSettlementHook(hook SettlementHook) {
	if hook != nil {
		s.settlement = hook
	}
}

func (s *Service) gatewayFor(method string) (gateway.Gateway, error) {
	s.gwLock.RLock()
	defer s.gwLock.RUnlock()
	if gw, ok := s.gateways[method]; ok {
		return gw, nil
	}
	if gw, ok := s.gateways[s.defaultGw]; ok {
		return gw, nil
	}
	return nil, errors.New("no payment gateway registered")
}

// CreateOrder converts the user's cart into an immutable order, persists it
// pending/pending, and asks the gateway for a hosted payment link. The cart
// is only cleared after the order is durably persisted and the gateway
// accepted the initialization; a gateway failure leaves the order pending
// and retryable through ReinitializePayment.
func (s *Service) CreateOrder(ctx context.Context, userID string, address models.ShippingAddress, paymentMethod string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperrors.NotFound("User not found")
		}
		return "", err
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if cart == nil || len(cart.Items) == 0 {
		return "", apperrors.BadRequest("Cart is empty")
	}

	// Re-read every product: snapshot the live price, reject the whole
	// order on any missing or out-of-stock line.
	items := make([]models.OrderItem, 0, len(cart.Items))
	var totalAmount float64
	for _, line := range cart.Items {
		product, err := s.catalog.FindProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return "", apperrors.BadRequest(fmt.Sprintf("Product %s not found", line.ProductID))
			}
			return "", err
		}
		if product.OutOfStock {
			return "", apperrors.BadRequest(fmt.Sprintf("Product %s is out of stock", product.Name))
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
			Name:      product.Name,
		})
		totalAmount += product.Price * float64(line.Quantity)
	}

	gw, err := s.gatewayFor(paymentMethod)
	if err != nil {
		return "", err
	}
	if paymentMethod == "" {
		paymentMethod = gw.Name()
	}

	now := time.Now()
	order := &models.Order{
		ID:               utils.GetUUID(),
		UserID:           userID,
		Items:            items,
		TotalAmount:      totalAmount,
		ShippingAddress:  address,
		OrderStatus:      models.OrderPending,
		PaymentStatus:    models.PaymentPending,
		PaymentReference: gw.NewReference(),
		PaymentMethod:    paymentMethod,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		return "", fmt.Errorf("persist order: %w", err)
	}

	paymentURL, err := gw.Init(ctx, user.Email, totalAmount, order.PaymentReference, map[string]any{
		"orderId":      order.ID,
		"userId":       user.ID,
		"customerName": address.FirstName + " " + address.LastName,
	})
	if err != nil {
		// Order stays pending and the cart untouched; the client retries
		// via re-initialization.
		log.Printf("CreateOrder: gateway init failed for order %s: %v", order.ID, err)
		return "", apperrors.BadRequest("Failed to initialize payment")
	}

	if err := s.orders.SetPaymentURL(ctx, order.ID, paymentURL); err != nil {
		log.Printf("CreateOrder: storing payment url for order %s: %v", order.ID, err)
	}
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("CreateOrder: clearing cart for user %s: %v", userID, err)
	}
	return paymentURL, nil
}

// ReinitializePayment starts a fresh payment attempt for an unpaid order.
// The new reference supersedes the old one; a stale webhook still resolves
// through the stored reference lookup until then.
func (s *Service) ReinitializePayment(ctx context.Context, orderID, userID string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperrors.NotFound("User not found")
		}
		return "", err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperrors.NotFound("Order not found")
		}
		return "", err
	}
	if order.UserID != userID {
		return "", apperrors.NotFound("Order not found")
	}
	if order.PaymentStatus == models.PaymentSuccess {
		return "", apperrors.BadRequest("Order already paid")
	}

	gw, err := s.gatewayFor(order.PaymentMethod)
	if err != nil {
		return "", err
	}

	reference := gw.NewReference()
	paymentURL, err := gw.Init(ctx, user.Email, order.TotalAmount, reference, map[string]any{
		"orderId":      order.ID,
		"userId":       order.UserID,
		"customerName": order.ShippingAddress.FirstName + " " + order.ShippingAddress.LastName,
	})
	if err != nil {
		log.Printf("ReinitializePayment: gateway init failed for order %s: %v", order.ID, err)
		return "", apperrors.BadRequest("Failed to initialize payment")
	}

	if err := s.orders.ReplaceReference(ctx, order.ID, reference, paymentURL); err != nil {
		return "", fmt.Errorf("replace payment reference: %w", err)
	}
	return paymentURL, nil
}

// HandleSuccessfulPayment settles a success webhook. The transition is a
// conditional update keyed on the echoed reference and applies only while
// the payment is still pending; any later delivery is a no-op returning the
// unchanged order.
func (s *Service) HandleSuccessfulPayment(ctx context.Context, reference string, ev gateway.Event) (*models.Order, error) {
	processing := models.OrderProcessing
	order, err := s.orders.SettlePayment(ctx, reference, models.PaymentSuccess, &processing)
	if err == nil {
		log.Printf("order %s payment confirmed via webhook (ref %s)", order.ID, reference)
		s.settlement(ctx, order, ev)
		return order, nil
	}
	if !errors.Is(err, store.ErrNotSettled) {
		return nil, err
	}
	return s.settledOrder(ctx, reference)
}

// HandleFailedPayment settles a failure webhook. The order status is left
// untouched so the order stays visible for manual re-initialization.
func (s *Service) HandleFailedPayment(ctx context.Context, reference string, ev gateway.Event) (*models.Order, error) {
	order, err := s.orders.SettlePayment(ctx, reference, models.PaymentFailed, nil)
	if err == nil {
		log.Printf("order %s payment failed via webhook (ref %s)", order.ID, reference)
		s.settlement(ctx, order, ev)
		return order, nil
	}
	if !errors.Is(err, store.ErrNotSettled) {
		return nil, err
	}
	return s.settledOrder(ctx, reference)
}

// settledOrder resolves a CAS miss: either the reference is unknown, or the
// order already left pending and the delivery is an idempotent duplicate.
func (s *Service) settledOrder(ctx context.Context, reference string) (*models.Order, error) {
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found for payment reference")
		}
		return nil, err
	}
	log.Printf("duplicate webhook for ref %s ignored, order %s already %s", reference, order.ID, order.PaymentStatus)
	return order, nil
}

// GetPaymentStatus is a pure read used for client polling.
func (s *Service) GetPaymentStatus(ctx context.Context, reference string) (*PaymentStatusView, error) {
	order, err := s.orders.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, err
	}
	return &PaymentStatusView{
		Reference:     order.PaymentReference,
		PaymentStatus: order.PaymentStatus,
		OrderStatus:   order.OrderStatus,
		IsPaid:        order.PaymentStatus == models.PaymentSuccess,
		IsFailed:      order.PaymentStatus == models.PaymentFailed,
	}, nil
}

// CancelOrder cancels while the order is still pending or processing. An
// empty scopeUserID (admin) cancels regardless of owner.
func (s *Service) CancelOrder(ctx context.Context, orderID, scopeUserID string) (*models.Order, error) {
	cancelled, err := s.orders.Cancel(ctx, orderID, scopeUserID)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return s.orders.FindByID(ctx, orderID)
	}

	// The conditional update matched nothing: missing order or a state
	// that cannot be cancelled.
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, err
	}
	if scopeUserID != "" && order.UserID != scopeUserID {
		return nil, apperrors.NotFound("Order not found")
	}
	return nil, apperrors.BadRequest("Order cannot be cancelled at this stage")
}

// UpdateOrderStatus is the administrative overwrite: any status can be set
// from any prior state. Overrides leaving a terminal state are logged for
// audit.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	if !models.ValidOrderStatus(status) {
		return apperrors.BadRequest("Invalid order status")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("Order not found")
		}
		return err
	}
	if order.OrderStatus == models.OrderDelivered || order.OrderStatus == models.OrderCancelled {
		log.Printf("WARN: admin override moves order %s from terminal state %s to %s", orderID, order.OrderStatus, status)
	}
	return s.orders.SetOrderStatus(ctx, orderID, status)
}

func (s *Service) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, err
	}
	return order, nil
}

// GetUserOrders pages through one user's orders, newest first.
func (s *Service) GetUserOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, utils.Pagination, error) {
	orders, total, err := s.orders.Find(ctx, models.OrderFilter{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, utils.NewPagination(page, limit, total), nil
}

// GetAllOrders is the admin listing; item arrays are collapsed to counts.
func (s *Service) GetAllOrders(ctx context.Context, f models.OrderFilter) ([]models.OrderSummary, utils.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	orders, total, err := s.orders.Find(ctx, f)
	if err != nil {
		return nil, utils.Pagination{}, err
	}

	summaries := make([]models.OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, models.OrderSummary{
			ID:            order.ID,
			UserID:        order.UserID,
			Items:         len(order.Items),
			TotalAmount:   order.TotalAmount,
			OrderStatus:   order.OrderStatus,
			PaymentStatus: order.PaymentStatus,
			CreatedAt:     order.CreatedAt,
		})
	}
	return summaries, utils.NewPagination(f.Page, f.Limit, total), nil
}

// GetUserLastShippingAddress returns the address from the user's newest
// order, for checkout prefill.
func (s *Service) GetUserLastShippingAddress(ctx context.Context, userID string) (*models.ShippingAddress, error) {
	address, err := s.orders.LastShippingAddress(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("No previous orders found")
		}
		return nil, err
	}
	return address, nil
}

// TrackOrder is the public tracking lookup: order id plus the billing
// e-mail of the owning user. Mismatches read as not found so the endpoint
// leaks nothing.
func (s *Service) TrackOrder(ctx context.Context, orderID, billingEmail string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, err
	}
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, err
	}
	if !strings.EqualFold(user.Email, billingEmail) {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, nil
}

// OrderStats counts orders per fulfilment status for the admin dashboard.
func (s *Service) OrderStats(ctx context.Context) (*models.OrderStats, error) {
	return s.orders.CountByStatus(ctx)
}
