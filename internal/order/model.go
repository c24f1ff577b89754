package order

import (
	"time"

	"koubyte-be/internal/payment"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusFlow = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition follows pending -> confirmed -> in_progress -> completed.
// Any non-terminal order may be cancelled.
func CanTransition(from, to Status) bool {
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentRank = map[PaymentStatus]int{
	PaymentUnpaid:   0,
	PaymentPending:  1,
	PaymentPaid:     2,
	PaymentRefunded: 3,
}

func (p PaymentStatus) Valid() bool {
	_, ok := paymentRank[p]
	return ok
}

// CanAdvancePayment allows admin moves forward along
// unpaid -> pending -> paid -> refunded only.
func CanAdvancePayment(from, to PaymentStatus) bool {
	f, ok1 := paymentRank[from]
	t, ok2 := paymentRank[to]
	return ok1 && ok2 && t > f
}

type Order struct {
	ID             uint             `json:"id"`
	OrderNumber    string           `json:"orderNumber"`
	UserID         *uint            `json:"userId"`
	CustomerName   string           `json:"customerName"`
	CustomerEmail  string           `json:"customerEmail"`
	Status         Status           `json:"status"`
	PaymentStatus  PaymentStatus    `json:"paymentStatus"`
	PaymentMethod  string           `json:"paymentMethod"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	DiscountCode   *string          `json:"discountCode"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	FinalAmount    *decimal.Decimal `json:"finalAmount"`
	Notes          string           `json:"notes"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	Items          []Item           `json:"items"`
}

// Payable is what the customer owes: the discounted amount when a code was
// applied, the plain total otherwise.
func (o *Order) Payable() decimal.Decimal {
	if o.FinalAmount != nil {
		return *o.FinalAmount
	}
	return o.TotalAmount
}

func (o *Order) Ref() payment.OrderRef {
	return payment.OrderRef{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		CustomerEmail: o.CustomerEmail,
		PaymentStatus: string(o.PaymentStatus),
		Payable:       o.Payable(),
	}
}

// Item is a frozen copy of a cart line at checkout time.
type Item struct {
	ID          uint            `json:"id"`
	OrderID     uint            `json:"orderId"`
	ServiceID   *uint           `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CheckoutInput struct {
	Notes          string `json:"notes"`
	PaymentMethod  string `json:"paymentMethod"`
	DiscountCode   string `json:"discountCode"`
	IdempotencyKey string `json:"-"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
}

// CheckoutResult is the combined response of a checkout.
type CheckoutResult struct {
	Order        *Order                `json:"order"`
	Payment      *payment.Payment      `json:"payment,omitempty"`
	RedirectURL  string                `json:"redirectUrl,omitempty"`
	Instructions *payment.Instructions `json:"instructions,omitempty"`
	PaymentError string                `json:"paymentError,omitempty"`
	Replayed     bool                  `json:"replayed,omitempty"`
}

type ListFilter struct {
	Status        string
	PaymentStatus string
	Search        string
	Limit         int
	Page          int
}

type OrderList struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

// AdminUpdate changes status and/or payment status.
type AdminUpdate struct {
	Status        *Status        `json:"status"`
	PaymentStatus *PaymentStatus `json:"paymentStatus"`
}
