package quote

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

type Quote struct {
	ID                 uint             `json:"id"`
	UserID             *uint            `json:"userId"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Company            string           `json:"company"`
	ServiceIDs         []int64          `json:"serviceIds"`
	ServiceDescription string           `json:"serviceDescription"`
	Message            string           `json:"message"`
	EstimatedPrice     *decimal.Decimal `json:"estimatedPrice"`
	Status             Status           `json:"status"`
	AdminNotes         string           `json:"adminNotes"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

type RequestInput struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	Company            string `json:"company"`
	ServiceIDs         []uint `json:"serviceIds"`
	ServiceDescription string `json:"serviceDescription"`
	Message            string `json:"message"`
}

type UpdateInput struct {
	Status         *Status          `json:"status,omitempty"`
	AdminNotes     *string          `json:"adminNotes,omitempty"`
	EstimatedPrice *decimal.Decimal `json:"estimatedPrice,omitempty"`
}
