package api

import (
	"net/http"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/middleware"
	"koubyte-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	Tokens     middleware.TokenParser
	Limiter    *middleware.RateLimiter
	CORSOrigin string
}

// StrictPrefixes and PollingPrefixes pick the rate limit tier.
var (
	StrictPrefixes  = []string{"/api/auth/", "/api/orders", "/api/payments/", "/api/contact", "/api/quotes"}
	PollingPrefixes = []string{"/api/chat", "/api/notifications"}
)

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(logger.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.CORSOrigin))
	r.Use(middleware.AuthMiddleware(opts.Tokens))
	r.Use(middleware.LoggingMiddleware)
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/logout", h.logout)
			r.With(middleware.RequireAuth).Get("/me", h.me)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.listServices)
			r.Get("/categories", h.serviceCategories)
			r.Get("/{id}", h.getService)
			r.With(middleware.RequireAdmin).Post("/", h.createService)
			r.With(middleware.RequireAdmin).Patch("/{id}", h.updateService)
			r.With(middleware.RequireAdmin).Delete("/{id}", h.deleteService)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", h.getCart)
			r.Post("/", h.addToCart)
			r.Patch("/", h.updateCart)
			r.Delete("/", h.removeFromCart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", h.checkout)
			r.Get("/", h.listMyOrders)
			r.Get("/{id}", h.getOrder)
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RequireAuth).Post("/create", h.createPayment)
			r.Get("/return", h.paymentReturn)
			if h.Webhooks != nil {
				r.Post("/webhook/stripe", h.Webhooks.Stripe)
				r.Post("/webhook/mollie", h.Webhooks.Mollie)
			}
		})

		r.Post("/discounts/validate", h.validateDiscount)

		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", h.requestQuote)
			r.With(middleware.RequireAuth).Get("/", h.listQuotes)
			r.With(middleware.RequireAdmin).Patch("/{id}", h.updateQuote)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/slots", h.appointmentSlots)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/", h.listMyAppointments)
				r.Post("/", h.bookAppointment)
				r.Patch("/{id}", h.updateAppointment)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.publicReviews)
			r.With(middleware.RequireAuth).Post("/", h.createReview)
		})

		r.Post("/contact", h.createContact)

		r.Route("/chat", func(r chi.Router) {
			r.Get("/", h.chatMessages)
			r.Post("/", h.chatPost)
			r.With(middleware.RequireAdmin).Get("/conversations", h.listConversations)
			r.With(middleware.RequireAdmin).Patch("/conversations/{id}", h.updateConversation)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", h.listNotifications)
			r.Patch("/", h.markNotifications)
		})

		r.Route("/blog", func(r chi.Router) {
			r.Get("/", h.listPosts)
			r.Get("/{idOrSlug}", h.getPost)
			r.With(middleware.RequireAdmin).Post("/", h.createPost)
			r.With(middleware.RequireAdmin).Patch("/{id}", h.updatePost)
			r.With(middleware.RequireAdmin).Delete("/{id}", h.deletePost)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/orders", h.adminListOrders)
			r.Patch("/orders", h.adminUpdateOrder)
			r.Delete("/orders", h.adminDeleteOrder)

			r.Get("/payments", h.adminListPayments)
			r.Post("/payments/{id}/refund", h.adminRefund)

			r.Get("/discounts", h.adminListDiscounts)
			r.Post("/discounts", h.adminCreateDiscount)
			r.Patch("/discounts", h.adminUpdateDiscount)
			r.Delete("/discounts", h.adminDeleteDiscount)

			r.Get("/appointments", h.adminListAppointments)

			r.Get("/reviews", h.adminListReviews)
			r.Patch("/reviews/{id}", h.adminModerateReview)
			r.Delete("/reviews/{id}", h.adminDeleteReview)

			r.Get("/messages", h.adminListMessages)
			r.Patch("/messages/{id}", h.adminMarkMessage)
			r.Delete("/messages/{id}", h.adminDeleteMessage)

			r.Get("/users", h.adminListUsers)
			r.Patch("/users", h.adminUpdateUser)
			r.Delete("/users", h.adminDeleteUser)

			r.Get("/stats", h.adminStats)
			r.Get("/metrics", h.adminMetrics)
		})
	})

	return r
}
