package api

import (
	"errors"
	"net/http"

	"koubyte-be/internal/appointment"
	"koubyte-be/internal/blog"
	"koubyte-be/internal/cart"
	"koubyte-be/internal/catalog"
	"koubyte-be/internal/chat"
	"koubyte-be/internal/contact"
	"koubyte-be/internal/dashboard"
	"koubyte-be/internal/discount"
	"koubyte-be/internal/metrics"
	"koubyte-be/internal/notification"
	"koubyte-be/internal/order"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/quote"
	"koubyte-be/internal/review"
	"koubyte-be/internal/user"
	"koubyte-be/internal/utils"

	"github.com/go-chi/chi/v5"
)

var errInvalidID = errors.New("invalid id")

// Handler holds every service the REST surface calls into.
type Handler struct {
	Users         user.Service
	Catalog       catalog.Service
	Cart          cart.Service
	Orders        order.Service
	Payments      payment.Service
	Webhooks      WebhookHandler
	Discounts     discount.Service
	Quotes        quote.Service
	Appointments  appointment.Service
	Reviews       review.Service
	Contact       contact.Service
	Chat          chat.Service
	Notifications notification.Service
	Blog          blog.Service
	Dashboard     dashboard.Service
	Metrics       *metrics.Registry

	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
}

type WebhookHandler interface {
	Stripe(w http.ResponseWriter, r *http.Request)
	Mollie(w http.ResponseWriter, r *http.Request)
}

func requester(r *http.Request) utils.Requester {
	req, _ := utils.RequesterFromContext(r.Context())
	return req
}

func pathID(r *http.Request) (uint, error) {
	id, err := utils.ToUint(chi.URLParam(r, "id"))
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func queryID(r *http.Request) (uint, error) {
	id, err := utils.ToUint(r.URL.Query().Get("id"))
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}
