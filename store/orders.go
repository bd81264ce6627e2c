package store

import (
	"context"
	"errors"
	"time"

	"soko/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OrderStore struct {
	col *mongo.Collection
}

func NewOrderStore(col *mongo.Collection) *OrderStore {
	return &OrderStore{col: col}
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	_, err := s.col.InsertOne(ctx, order)
	return err
}

func (s *OrderStore) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.col.FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByReference looks an order up by whatever payment reference the
// gateway echoed back, current or superseded.
func (s *OrderStore) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := s.col.FindOne(ctx, bson.M{"paymentreference": reference}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SettlePayment applies the webhook transition atomically: the update only
// matches while paymentstatus is still pending, so concurrent or duplicate
// deliveries settle at most once. Returns ErrNotSettled on a CAS miss.
func (s *OrderStore) SettlePayment(ctx context.Context, reference string, payment models.PaymentStatus, order *models.OrderStatus) (*models.Order, error) {
	set := bson.M{
		"paymentstatus": payment,
		"updatedat":     time.Now(),
	}
	if order != nil {
		set["orderstatus"] = *order
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Order
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"paymentreference": reference, "paymentstatus": models.PaymentPending},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotSettled
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReplaceReference supersedes the order's payment reference with a fresh
// one from a re-initialization. The old reference stays resolvable through
// FindByReference only until overwritten here.
func (s *OrderStore) ReplaceReference(ctx context.Context, orderID, reference, paymentURL string) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{
			"paymentreference": reference,
			"paymenturl":       paymentURL,
			"updatedat":        time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *OrderStore) SetPaymentURL(ctx context.Context, orderID, paymentURL string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"paymenturl": paymentURL, "updatedat": time.Now()}},
	)
	return err
}

// SetOrderStatus is the unconditional administrative overwrite.
func (s *OrderStore) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": orderID},
		bson.M{"$set": bson.M{"orderstatus": status, "updatedat": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Cancel flips the order to cancelled only while it is still pending or
// processing. Reports whether the conditional update matched.
func (s *OrderStore) Cancel(ctx context.Context, orderID, userID string) (bool, error) {
	filter := bson.M{
		"_id":         orderID,
		"orderstatus": bson.M{"$in": []models.OrderStatus{models.OrderPending, models.OrderProcessing}},
	}
	if userID != "" {
		filter["userid"] = userID
	}
	res, err := s.col.UpdateOne(ctx, filter,
		bson.M{"$set": bson.M{"orderstatus": models.OrderCancelled, "updatedat": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Find returns one page of orders, newest first, plus the total match count.
func (s *OrderStore) Find(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userid"] = f.UserID
	}
	if f.OrderStatus != "" {
		filter["orderstatus"] = f.OrderStatus
	}
	if f.PaymentStatus != "" {
		filter["paymentstatus"] = f.PaymentStatus
	}
	if f.StartDate != nil || f.EndDate != nil {
		created := bson.M{}
		if f.StartDate != nil {
			created["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			created["$lte"] = *f.EndDate
		}
		filter["createdat"] = created
	}

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	opts := options.Find().
		SetSort(bson.M{"createdat": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var orders []models.Order
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// LastShippingAddress returns the address from the user's newest order.
func (s *OrderStore) LastShippingAddress(ctx context.Context, userID string) (*models.ShippingAddress, error) {
	opts := options.FindOne().
		SetSort(bson.M{"createdat": -1}).
		SetProjection(bson.M{"shippingaddress": 1})

	var order models.Order
	err := s.col.FindOne(ctx, bson.M{"userid": userID}, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order.ShippingAddress, nil
}

// CountByStatus groups orders per fulfilment status for the admin stats
// endpoint.
func (s *OrderStore) CountByStatus(ctx context.Context) (*models.OrderStats, error) {
	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$orderstatus", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &models.OrderStats{}
	for _, row := range rows {
		stats.TotalOrders += row.Count
		switch row.Status {
		case models.OrderPending:
			stats.PendingOrders = row.Count
		case models.OrderProcessing:
			stats.ProcessingOrders = row.Count
		case models.OrderShipped:
			stats.ShippedOrders = row.Count
		case models.OrderDelivered:
			stats.DeliveredOrders = row.Count
		case models.OrderCancelled:
			stats.CancelledOrders = row.Count
		}
	}
	return stats, nil
}

// settledMatch is the qualifying-order filter shared by the dashboard
// reads: payment succeeded and the order was not subsequently cancelled.
func settledMatch(start, end *time.Time) bson.M {
	match := bson.M{
		"paymentstatus": models.PaymentSuccess,
		"orderstatus":   bson.M{"$ne": models.OrderCancelled},
	}
	if start != nil || end != nil {
		created := bson.M{}
		if start != nil {
			created["$gte"] = *start
		}
		if end != nil {
			created["$lte"] = *end
		}
		match["createdat"] = created
	}
	return match
}

// SettledRevenue sums totalamount over qualifying orders; nil bounds mean
// all-time.
func (s *OrderStore) SettledRevenue(ctx context.Context, start, end *time.Time) (float64, error) {
	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: settledMatch(start, end)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "revenue": bson.M{"$sum": "$totalamount"}}}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Revenue float64 `bson:"revenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Revenue, nil
}

func (s *OrderStore) SettledOrderCount(ctx context.Context, start, end *time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, settledMatch(start, end))
}

// SettledCustomerCount counts distinct users among qualifying orders.
func (s *OrderStore) SettledCustomerCount(ctx context.Context, start, end *time.Time) (int64, error) {
	cur, err := s.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: settledMatch(start, end)}},
		{{Key: "$group", Value: bson.M{"_id": "$userid"}}},
		{{Key: "$count", Value: "customers"}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Customers int64 `bson:"customers"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Customers, nil
}
