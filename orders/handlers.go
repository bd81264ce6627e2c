package orders

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"soko/apperrors"
	"soko/models"
	"soko/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func respondError(w http.ResponseWriter, err error) {
	status := apperrors.Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("orders: %v", err)
	}
	utils.RespondWithError(w, status, apperrors.Message(err))
}

// CreateOrder converts the caller's cart into an order and returns the
// hosted payment link.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		PaymentMethod   string                 `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !body.ShippingAddress.Validate() {
		utils.RespondWithError(w, http.StatusBadRequest, "All shipping address fields are required")
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	paymentURL, err := h.svc.CreateOrder(r.Context(), userID, body.ShippingAddress, body.PaymentMethod)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message":    "Payment link generated successfully",
		"paymentUrl": paymentURL,
	})
}

// ReinitializePayment issues a fresh payment link for an unpaid order.
func (h *Handlers) ReinitializePayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	paymentURL, err := h.svc.ReinitializePayment(r.Context(), ps.ByName("orderid"), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":    "Payment URL retrieved successfully",
		"paymentUrl": paymentURL,
	})
}

// GetPaymentStatus is public: clients poll it after returning from the
// gateway's hosted page.
func (h *Handlers) GetPaymentStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.svc.GetPaymentStatus(r.Context(), ps.ByName("reference"))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

// TrackOrder is the public tracking lookup by order id plus billing e-mail.
func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	orderID := r.URL.Query().Get("orderId")
	email := r.URL.Query().Get("billingEmail")
	if orderID == "" || email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "orderId and billingEmail are required")
		return
	}

	order, err := h.svc.TrackOrder(r.Context(), orderID, email)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Order found",
		"order":   order,
	})
}

func (h *Handlers) GetUserOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	page, limit := utils.ParsePage(r)
	orders, pagination, err := h.svc.GetUserOrders(r.Context(), userID, page, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":    "Orders retrieved successfully",
		"data":       orders,
		"pagination": pagination,
	})
}

func (h *Handlers) GetLastShippingAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	address, err := h.svc.GetUserLastShippingAddress(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":         "Shipping address retrieved successfully",
		"shippingAddress": address,
	})
}

// GetOrder returns one order. Non-admin callers only see their own.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := h.svc.GetOrderByID(r.Context(), ps.ByName("orderid"))
	if err != nil {
		respondError(w, err)
		return
	}
	if !utils.IsAdminRequest(r) && order.UserID != utils.GetUserIDFromRequest(r) {
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Order retrieved successfully",
		"order":   order,
	})
}

// CancelOrder cancels a pending or processing order. Admins may cancel any
// order; regular users only their own.
func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scopeUserID := utils.GetUserIDFromRequest(r)
	if utils.IsAdminRequest(r) {
		scopeUserID = ""
	}
	order, err := h.svc.CancelOrder(r.Context(), ps.ByName("orderid"), scopeUserID)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// UpdateOrderStatus is the admin fulfilment-status overwrite.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		OrderStatus models.OrderStatus `json:"orderStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OrderStatus == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "orderStatus is required")
		return
	}

	if err := h.svc.UpdateOrderStatus(r.Context(), ps.ByName("orderid"), body.OrderStatus); err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Order status updated successfully"})
}

// GetAllOrders is the admin listing with optional filters.
func (h *Handlers) GetAllOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	page, limit := utils.ParsePage(r)
	filter := models.OrderFilter{
		UserID:        q.Get("userId"),
		OrderStatus:   models.OrderStatus(q.Get("orderStatus")),
		PaymentStatus: models.PaymentStatus(q.Get("paymentStatus")),
		Page:          page,
		Limit:         limit,
	}
	if filter.OrderStatus != "" && !models.ValidOrderStatus(filter.OrderStatus) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order status filter")
		return
	}
	if filter.PaymentStatus != "" && !models.ValidPaymentStatus(filter.PaymentStatus) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payment status filter")
		return
	}
	if raw := q.Get("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid startDate")
			return
		}
		filter.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid endDate")
			return
		}
		filter.EndDate = &t
	}

	summaries, pagination, err := h.svc.GetAllOrders(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":    "Orders retrieved successfully",
		"data":       summaries,
		"pagination": pagination,
	})
}

// GetOrderStats returns counts per fulfilment status.
func (h *Handlers) GetOrderStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.svc.OrderStats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Order stats retrieved successfully",
		"stats":   stats,
	})
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
