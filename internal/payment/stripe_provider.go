package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"koubyte-be/internal/logger"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeProvider opens Stripe Checkout Sessions. The session id is the
// intent id stored on the attempt.
type StripeProvider struct {
	sessions stripeSessionAPI
	refunds  stripeRefundAPI
}

func NewStripeProvider(apiKey string) (*StripeProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(apiKey, nil)
	return &StripeProvider{sessions: sc.CheckoutSessions, refunds: sc.Refunds}, nil
}

var stripeMethodTypes = map[string]string{
	MethodCard:       "card",
	MethodBancontact: "bancontact",
	MethodSEPA:       "sepa_debit",
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	log := logger.Scoped(ctx, "provider", "StripeCreateCheckoutSession",
		zap.Uint("payment_id", req.PaymentID),
		zap.String("order_number", req.OrderNumber),
		zap.Int64("amount", req.Amount),
	)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderNumber),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
	}
	params.Context = ctx
	params.SetIdempotencyKey("payment-" + strconv.FormatUint(uint64(req.PaymentID), 10))

	if t, ok := stripeMethodTypes[req.Method]; ok {
		params.PaymentMethodTypes = stripe.StringSlice([]string{t})
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = make(map[string]string, len(req.Metadata))
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: make(map[string]string, len(req.Metadata)),
		}
		for k, v := range req.Metadata {
			params.Metadata[k] = v
			params.PaymentIntentData.Metadata[k] = v
		}
	}

	session, err := p.sessions.New(params)
	if err != nil {
		log.Error("stripe session creation failed", zap.Error(err))
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	log.Info("stripe session created", zap.String("session_id", session.ID))
	return CheckoutSession{IntentID: session.ID, RedirectURL: session.URL}, nil
}

func (p *StripeProvider) LookupPayment(ctx context.Context, intentID string) (Details, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := p.sessions.Get(intentID, params)
	if err != nil {
		return Details{}, fmt.Errorf("stripe: lookup checkout session: %w", err)
	}
	return stripeSessionDetails(session), nil
}

func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) error {
	getParams := &stripe.CheckoutSessionParams{}
	getParams.Context = ctx
	getParams.AddExpand("payment_intent")

	session, err := p.sessions.Get(req.IntentID, getParams)
	if err != nil {
		return fmt.Errorf("stripe: lookup checkout session: %w", err)
	}
	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		return errors.New("stripe: session has no payment intent")
	}

	params := &stripe.RefundParams{PaymentIntent: stripe.String(session.PaymentIntent.ID)}
	params.Context = ctx
	if req.Amount > 0 {
		params.Amount = stripe.Int64(req.Amount)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	if _, err := p.refunds.New(params); err != nil {
		return fmt.Errorf("stripe: refund payment intent: %w", err)
	}
	logger.Scoped(ctx, "provider", "StripeRefund").Info("stripe refund created",
		zap.String("session_id", req.IntentID))
	return nil
}

// stripeSessionDetails maps a checkout session onto Status. A completed
// session that is still unpaid is an asynchronous method (SEPA) in flight.
func stripeSessionDetails(s *stripe.CheckoutSession) Details {
	d := Details{IntentID: s.ID, Status: StatusPending}
	switch s.Status {
	case stripe.CheckoutSessionStatusComplete:
		if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			d.Status = StatusProcessing
		} else {
			d.Status = StatusCompleted
		}
	case stripe.CheckoutSessionStatusExpired:
		d.Status = StatusFailed
		d.Reason = "checkout session expired"
	}
	return d
}
