package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

const mollieBaseURL = "https://api.mollie.com/v2"

type mollieProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewMollieProvider talks to the Mollie payments API v2.
func NewMollieProvider(apiKey string) (Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("mollie: api key is required")
	}
	return &mollieProvider{
		apiKey:  apiKey,
		baseURL: mollieBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type mollieAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type molliePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  struct {
		Checkout *struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

var mollieMethods = map[string]string{
	MethodPayPal: "paypal",
	MethodIDEAL:  "ideal",
}

func (m *mollieProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	log := logger.Scoped(ctx, "provider", "MollieCreatePayment",
		zap.Uint("payment_id", req.PaymentID),
		zap.String("order_number", req.OrderNumber),
		zap.Int64("amount", req.Amount),
	)

	body := map[string]any{
		"amount": mollieAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    FromMinorUnits(req.Amount).StringFixed(2),
		},
		"description": req.Description,
		"redirectUrl": req.ReturnURL,
		"cancelUrl":   req.CancelURL,
		"metadata":    req.Metadata,
	}
	if req.WebhookURL != "" {
		body["webhookUrl"] = req.WebhookURL
	}
	if method, ok := mollieMethods[req.Method]; ok {
		body["method"] = method
	}

	var res molliePayment
	if err := m.do(ctx, http.MethodPost, "/payments", body, &res); err != nil {
		log.Error("mollie payment creation failed", zap.Error(err))
		return CheckoutSession{}, err
	}
	if res.Links.Checkout == nil || res.Links.Checkout.Href == "" {
		log.Error("mollie response has no checkout link", zap.String("mollie_id", res.ID))
		return CheckoutSession{}, errors.New("mollie: missing checkout link")
	}

	log.Info("mollie payment created", zap.String("mollie_id", res.ID), zap.String("status", res.Status))
	return CheckoutSession{IntentID: res.ID, RedirectURL: res.Links.Checkout.Href}, nil
}

func (m *mollieProvider) LookupPayment(ctx context.Context, intentID string) (Details, error) {
	var res molliePayment
	if err := m.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(intentID), nil, &res); err != nil {
		return Details{}, err
	}
	return mollieDetails(res), nil
}

func (m *mollieProvider) Refund(ctx context.Context, req RefundRequest) error {
	body := map[string]any{
		"amount": mollieAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    FromMinorUnits(req.Amount).StringFixed(2),
		},
	}
	if err := m.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(req.IntentID)+"/refunds", body, nil); err != nil {
		logger.Scoped(ctx, "provider", "MollieRefund").Error("mollie refund failed",
			zap.String("mollie_id", req.IntentID), zap.Error(err))
		return err
	}
	return nil
}

func (m *mollieProvider) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mollie request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mollie response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mollie error (%d): %s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(bodyBytes, out)
}

func mollieDetails(p molliePayment) Details {
	d := Details{IntentID: p.ID}
	switch p.Status {
	case "paid":
		d.Status = StatusCompleted
	case "authorized", "pending":
		d.Status = StatusProcessing
	case "canceled", "expired", "failed":
		d.Status = StatusFailed
		d.Reason = "mollie payment " + p.Status
	default:
		d.Status = StatusPending
	}
	return d
}
