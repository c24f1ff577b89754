package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metric names, also used in Stats.Degraded.
const (
	MetricAppointments  = "appointments"
	MetricOrders        = "orders"
	MetricRevenue       = "revenue"
	MetricQuotes        = "pendingQuotes"
	MetricReviews       = "pendingReviews"
	MetricMessages      = "unreadMessages"
	MetricConversations = "openConversations"
	MetricUsers         = "totalUsers"
	MetricRecentOrders  = "recentOrders"
)

type RecentOrder struct {
	ID            uint            `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerName  string          `json:"customerName"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type Stats struct {
	AppointmentsByStatus  map[string]int  `json:"appointmentsByStatus"`
	OrdersByPaymentStatus map[string]int  `json:"ordersByPaymentStatus"`
	TotalRevenue          decimal.Decimal `json:"totalRevenue"`
	PendingQuotes         int             `json:"pendingQuotes"`
	PendingReviews        int             `json:"pendingReviews"`
	UnreadMessages        int             `json:"unreadMessages"`
	OpenConversations     int             `json:"openConversations"`
	TotalUsers            int             `json:"totalUsers"`
	RecentOrders          []RecentOrder   `json:"recentOrders"`

	// Degraded lists the metrics that failed and show their zero value.
	Degraded []string `json:"degraded"`
}
