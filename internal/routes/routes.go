package routes

import (
	"os"

	corebooking "decora_back_end/internal/booking"
	"decora_back_end/internal/checkout"
	"decora_back_end/internal/handlers"
	bookinghandlers "decora_back_end/internal/handlers/booking"
	"decora_back_end/internal/handlers/payement"
	producthandlers "decora_back_end/internal/handlers/product"
	userhandlers "decora_back_end/internal/handlers/user"
	"decora_back_end/internal/middleware"
	"decora_back_end/internal/notify"
	"decora_back_end/internal/payment"
	"decora_back_end/internal/repository"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes câble tous les endpoints. La passerelle de paiement
// est injectée par main pour pouvoir être remplacée en test.
func RegisterRoutes(r *gin.Engine, gateway payment.Gateway) {
	frontend := os.Getenv("FRONTEND_URL")
	if frontend == "" {
		frontend = "http://localhost:5173"
	}

	availability := &corebooking.Checker{Store: repository.Reservations{}}

	svc := &checkout.Service{
		Catalog:      repository.Products{},
		Orders:       repository.Orders{},
		Rentals:      repository.Rentals{},
		Availability: availability,
		Gateway:      gateway,
		SuccessURL:   frontend + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:    frontend + "/checkout/cancel",
	}

	reconciler := &checkout.Reconciler{
		Orders:       repository.Orders{},
		Rentals:      repository.Rentals{},
		Sessions:     repository.Sessions{},
		Reservations: repository.Reservations{},
		Notifier:     notify.MailNotifier{},
		Log:          repository.ReconciliationLog{},
	}

	pay := &payement.Handler{
		Service:      svc,
		Reconciler:   reconciler,
		Rentals:      repository.Rentals{},
		Reservations: repository.Reservations{},
		Journal:      repository.ReconciliationLog{},
	}

	// Stripe appelle ce endpoint directement : pas d'auth utilisateur,
	// et hors limite de débit pour ne jamais bloquer une relivraison.
	r.POST("/api/webhook/stripe", pay.StripeWebhook)

	api := r.Group("/api")
	api.Use(middleware.APIRateLimit())

	// --- Public ---
	api.GET("/products", producthandlers.GetAllProducts)
	api.GET("/products/search", producthandlers.SearchProducts)
	api.GET("/products/:id", producthandlers.GetProduct)
	api.GET("/products/:id/images", producthandlers.GetProductImages)
	api.GET("/products/:id/availability", bookinghandlers.CheckAvailability)
	api.GET("/products/:id/calendar", bookinghandlers.GetCalendar)

	api.POST("/auth/register", middleware.RegisterRateLimit(), userhandlers.Register)
	api.POST("/auth/login", middleware.LoginRateLimit(), userhandlers.Login)
	api.GET("/auth/:provider", handlers.BeginAuth)
	api.GET("/auth/:provider/callback", handlers.CallbackAuth)
	api.POST("/auth/google/mobile", handlers.GoogleMobileLogin)

	// --- Authentifié ---
	auth := api.Group("")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/me", userhandlers.Me)

		auth.GET("/cart", userhandlers.GetCart)
		auth.POST("/cart", userhandlers.AddToCart)
		auth.DELETE("/cart/:productId", userhandlers.RemoveFromCart)
		auth.DELETE("/cart", userhandlers.ClearCart)
		auth.GET("/cart/ws", userhandlers.CartWebSocket)

		auth.POST("/checkout", middleware.CheckoutRateLimit(), pay.Checkout)
		auth.POST("/checkout/quote", pay.Quote)

		auth.GET("/orders", userhandlers.MyOrders)
		auth.GET("/orders/:id", userhandlers.GetOrder)
		auth.GET("/rentals", userhandlers.MyRentals)
		auth.GET("/rentals/:id", userhandlers.GetRental)
	}

	// --- Admin ---
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.POST("/products", producthandlers.CreateProduct)
		admin.PUT("/products/:id", producthandlers.UpdateProduct)
		admin.DELETE("/products/:id", producthandlers.DeactivateProduct)
		admin.POST("/products/:id/images", producthandlers.UploadProductImage)

		admin.GET("/reconciliation", pay.ListReconciliationLog)
		admin.GET("/products/:id/reservations", pay.ListProductReservations)
		admin.PUT("/rentals/:id/status", pay.UpdateRentalStatus)
	}
}
