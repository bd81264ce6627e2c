package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soko/cart"
	"soko/dashboard"
	"soko/db"
	"soko/gateway"
	"soko/orders"
	"soko/ratelim"
	"soko/rdx"
	"soko/routes"
	"soko/store"
	"soko/webhooks"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// setupGateways builds one adapter per configured provider. At least one
// secret must be present; the first registered gateway becomes the default.
func setupGateways(svc *orders.Service) []gateway.Gateway {
	appOrigin := os.Getenv("APP_ORIGIN")
	if appOrigin == "" {
		appOrigin = "http://localhost:3000"
	}

	var gws []gateway.Gateway
	if key := os.Getenv("PAYSTACK_SECRET_KEY"); key != "" {
		gws = append(gws, gateway.NewPaystack(key, appOrigin+"/payment/callback"))
	}
	if key := os.Getenv("FLW_SECRET_KEY"); key != "" {
		gws = append(gws, gateway.NewFlutterwave(key, os.Getenv("FLW_SECRET_HASH"), appOrigin+"/payment/callback"))
	}
	if len(gws) == 0 {
		log.Fatal("no payment gateway configured; set PAYSTACK_SECRET_KEY or FLW_SECRET_KEY")
	}

	for _, gw := range gws {
		svc.RegisterGateway(gw)
	}
	return gws
}

func setupRouter(rateLimiter *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	orderStore := store.NewOrderStore(db.OrderCollection)
	cartStore := store.NewCartStore(db.CartCollection)
	catalogStore := store.NewCatalogStore(db.ProductCollection)
	userStore := store.NewUserStore(db.UserCollection)

	orderSvc := orders.NewService(orderStore, cartStore, catalogStore, userStore)
	gws := setupGateways(orderSvc)

	cartSvc := cart.NewService(cartStore, catalogStore)
	dashSvc := dashboard.NewService(orderStore, catalogStore, rdx.Cache{})

	routes.AddCartRoutes(router, rateLimiter, cart.NewHandlers(cartSvc))
	routes.AddOrderRoutes(router, rateLimiter, orders.NewHandlers(orderSvc))
	routes.AddAdminRoutes(router, rateLimiter, orders.NewHandlers(orderSvc), dashboard.NewHandlers(dashSvc))
	routes.AddWebhookRoutes(router, webhooks.NewHandlers(orderSvc), gws...)

	return router
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	ctx := context.Background()
	if err := db.Init(ctx); err != nil {
		log.Fatalf("❌ MongoDB connection failed: %v", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("❌ Index creation failed: %v", err)
	}

	// cache is best-effort; the dashboard recomputes when redis is down
	if err := rdx.Init(); err != nil {
		log.Println("Redis unavailable, dashboard caching disabled")
	}

	rateLimiter := ratelim.NewRateLimiter()
	router := setupRouter(rateLimiter)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	if err := db.Close(shutdownCtx); err != nil {
		log.Printf("closing mongo client: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
