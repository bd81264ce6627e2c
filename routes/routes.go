package routes

import (
	"soko/cart"
	"soko/dashboard"
	"soko/gateway"
	"soko/middleware"
	"soko/orders"
	"soko/ratelim"
	"soko/webhooks"

	"github.com/julienschmidt/httprouter"
)

// AddCartRoutes wires the authenticated cart surface.
func AddCartRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *cart.Handlers) {
	authed := middleware.Chain(rateLimiter.Limit, middleware.Authenticate)

	router.GET("/api/v1/cart", authed(h.GetCart))
	router.POST("/api/v1/cart/items", authed(h.AddToCart))
	router.PUT("/api/v1/cart/items/:productid", authed(h.UpdateCartItem))
	router.DELETE("/api/v1/cart/items/:productid", authed(h.RemoveFromCart))
	router.DELETE("/api/v1/cart", authed(h.ClearCart))
	router.GET("/api/v1/cart/count", authed(h.GetCartItemsCount))
	router.POST("/api/v1/cart/validate", authed(h.ValidateCart))
}

// AddOrderRoutes wires the user-facing order lifecycle surface plus the two
// public lookups (payment polling and guest tracking).
func AddOrderRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, h *orders.Handlers) {
	authed := middleware.Chain(rateLimiter.Limit, middleware.Authenticate)
	public := middleware.Chain(rateLimiter.Limit)

	router.POST("/api/v1/orders", authed(h.CreateOrder))
	router.GET("/api/v1/orders", authed(h.GetUserOrders))
	router.GET("/api/v1/orders/:orderid", authed(h.GetOrder))
	router.PATCH("/api/v1/orders/:orderid/cancel", authed(h.CancelOrder))
	router.GET("/api/v1/orders/:orderid/reinitialize-payment", authed(h.ReinitializePayment))
	router.GET("/api/v1/orders/:orderid/invoice", authed(h.DownloadInvoice))
	router.GET("/api/v1/orders/:orderid/payment-qr", authed(h.PaymentQR))
	router.GET("/api/v1/user/last-address", authed(h.GetLastShippingAddress))

	router.GET("/api/v1/payments/status/:reference", public(h.GetPaymentStatus))
	router.GET("/api/v1/track-order", public(h.TrackOrder))
}

// AddAdminRoutes wires the admin order management and dashboard surface.
func AddAdminRoutes(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, oh *orders.Handlers, dh *dashboard.Handlers) {
	admin := middleware.Chain(rateLimiter.Limit, middleware.Authenticate, middleware.RequireRole("admin"))

	router.GET("/api/v1/admin/orders", admin(oh.GetAllOrders))
	router.GET("/api/v1/admin/orders/stats", admin(oh.GetOrderStats))
	router.PATCH("/api/v1/admin/orders/:orderid/status", admin(oh.UpdateOrderStatus))
	router.PATCH("/api/v1/admin/orders/:orderid/cancel", admin(oh.CancelOrder))
	router.GET("/api/v1/admin/dashboard", admin(dh.GetStats))
}

// AddWebhookRoutes registers one callback endpoint per provider adapter.
// No auth middleware: deliveries authenticate through the provider's own
// signature scheme, and rate limiting would let an attacker starve real
// deliveries.
func AddWebhookRoutes(router *httprouter.Router, wh *webhooks.Handlers, gws ...gateway.Gateway) {
	for _, gw := range gws {
		router.POST("/api/v1/webhooks/"+gw.Name(), wh.Receive(gw))
	}
}
