package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"koubyte-be/internal/logger"
	"koubyte-be/internal/metrics"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/utils"

	"github.com/stripe/stripe-go/v78"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// Store records provider deliveries.
type Store interface {
	SavePaymentWebhook(ctx context.Context, w payment.Webhook) (int64, bool, error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

// Payments applies provider reports.
type Payments interface {
	ApplyUpdate(ctx context.Context, u payment.Update) (*payment.Payment, bool, error)
	Lookup(ctx context.Context, provider, intentID string) (payment.Details, error)
}

type Handler struct {
	store        Store
	payments     Payments
	stripeSecret string
	metrics      *metrics.Registry
}

func NewHandler(store Store, payments Payments, stripeSecret string, reg *metrics.Registry) *Handler {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Handler{store: store, payments: payments, stripeSecret: stripeSecret, metrics: reg}
}

// Stripe verifies the Stripe-Signature header before anything is stored.
func (h *Handler) Stripe(w http.ResponseWriter, r *http.Request) {
	log := logger.Scoped(r.Context(), "webhook", "Stripe")

	if h.stripeSecret == "" {
		utils.WriteJSONError(w, "stripe webhooks are not configured", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := stripewebhook.ConstructEventWithOptions(body, r.Header.Get("Stripe-Signature"), h.stripeSecret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn("invalid stripe signature", zap.Error(err))
		utils.WriteJSONError(w, "invalid signature", http.StatusBadRequest)
		return
	}
	h.metrics.WebhooksReceived.Inc()

	update, ok, err := stripeUpdate(event)
	if err != nil {
		log.Warn("malformed stripe event", zap.String("event_id", event.ID), zap.Error(err))
		utils.WriteJSONError(w, "malformed event", http.StatusBadRequest)
		return
	}
	if !ok {
		log.Debug("stripe event ignored", zap.String("type", string(event.Type)))
		utils.WriteMessage(w, http.StatusOK, "ignored")
		return
	}

	h.process(r.Context(), w, payment.Webhook{
		Provider:       payment.ProviderStripe,
		EventID:        event.ID,
		EventType:      string(event.Type),
		ExternalID:     update.IntentID,
		Payload:        body,
		SignatureValid: true,
	}, update)
}

func stripeUpdate(event stripe.Event) (payment.Update, bool, error) {
	u := payment.Update{Provider: payment.ProviderStripe}

	switch string(event.Type) {
	case "checkout.session.completed":
		u.Status = payment.StatusCompleted
	case "checkout.session.async_payment_succeeded":
		u.Status = payment.StatusCompleted
	case "checkout.session.async_payment_failed":
		u.Status = payment.StatusFailed
		u.FailureReason = "asynchronous payment failed"
	case "checkout.session.expired":
		u.Status = payment.StatusFailed
		u.FailureReason = "checkout session expired"
	default:
		return u, false, nil
	}

	if event.Data == nil {
		return u, false, errors.New("event has no data")
	}
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return u, false, err
	}
	if session.ID == "" {
		return u, false, errors.New("event has no checkout session")
	}

	// SEPA and other delayed methods complete the session before the money arrives.
	if string(event.Type) == "checkout.session.completed" &&
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		u.Status = payment.StatusProcessing
	}

	u.IntentID = session.ID
	if id, err := strconv.ParseUint(session.Metadata["payment_id"], 10, 64); err == nil {
		u.PaymentID = uint(id)
	}
	return u, true, nil
}

// Mollie only posts the payment id. The status is always fetched from the
// API, so the delivery itself needs no signature.
func (h *Handler) Mollie(w http.ResponseWriter, r *http.Request) {
	log := logger.Scoped(r.Context(), "webhook", "Mollie")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, "invalid form body", http.StatusBadRequest)
		return
	}
	id := r.PostFormValue("id")
	if id == "" {
		utils.WriteJSONError(w, "missing id", http.StatusBadRequest)
		return
	}
	h.metrics.WebhooksReceived.Inc()

	details, err := h.payments.Lookup(r.Context(), payment.ProviderMollie, id)
	if err != nil {
		log.Error("mollie lookup failed", zap.String("mollie_id", id), zap.Error(err))
		h.metrics.WebhooksFailed.Inc()
		utils.WriteJSONError(w, "lookup failed", http.StatusBadGateway)
		return
	}

	payload, _ := json.Marshal(map[string]string{"id": id, "status": string(details.Status)})

	// One delivery per status change: Mollie reuses the payment id for every call.
	h.process(r.Context(), w, payment.Webhook{
		Provider:       payment.ProviderMollie,
		EventID:        id + ":" + string(details.Status),
		EventType:      "payment." + string(details.Status),
		ExternalID:     id,
		Payload:        payload,
		SignatureValid: true,
	}, payment.Update{
		Provider:      payment.ProviderMollie,
		IntentID:      id,
		Status:        details.Status,
		FailureReason: details.Reason,
	})
}

func (h *Handler) process(ctx context.Context, w http.ResponseWriter, wh payment.Webhook, u payment.Update) {
	log := logger.Scoped(ctx, "webhook", "process",
		zap.String("provider", wh.Provider),
		zap.String("event_id", wh.EventID),
	)

	webhookID, duplicate, err := h.store.SavePaymentWebhook(ctx, wh)
	if err != nil {
		log.Error("failed to store webhook", zap.Error(err))
		h.metrics.WebhooksFailed.Inc()
		utils.WriteJSONError(w, "failed to store webhook", http.StatusInternalServerError)
		return
	}
	if duplicate {
		log.Info("duplicate webhook ignored")
		h.metrics.WebhooksDuplicate.Inc()
		utils.WriteMessage(w, http.StatusOK, "duplicate")
		return
	}

	_, changed, err := h.payments.ApplyUpdate(ctx, u)
	if err != nil {
		h.metrics.WebhooksFailed.Inc()
		if markErr := h.store.MarkWebhookFailed(ctx, webhookID, err.Error()); markErr != nil {
			log.Error("failed to mark webhook failed", zap.Error(markErr))
		}
		// Unknown payments will not appear on retry.
		if errors.Is(err, payment.ErrPaymentNotFound) {
			log.Warn("webhook for unknown payment", zap.Error(err))
			utils.WriteMessage(w, http.StatusOK, "unknown payment")
			return
		}
		log.Error("failed to apply webhook", zap.Error(err))
		utils.WriteJSONError(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	if err := h.store.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}
	log.Info("webhook processed", zap.Bool("changed", changed))
	utils.WriteMessage(w, http.StatusOK, "ok")
}
