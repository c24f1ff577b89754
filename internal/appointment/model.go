package appointment

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var statusFlow = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Slots are the bookable start times, one appointment per slot per day.
var Slots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00", "17:00"}

func ValidSlot(slot string) bool {
	for _, s := range Slots {
		if s == slot {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

type Appointment struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"userId"`
	UserName    string    `json:"userName,omitempty"`
	UserEmail   string    `json:"userEmail,omitempty"`
	ServiceID   *uint     `json:"serviceId"`
	ServiceName string    `json:"serviceName"`
	Date        string    `json:"date"`
	TimeSlot    string    `json:"timeSlot"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type BookInput struct {
	Date        string `json:"date"`
	TimeSlot    string `json:"timeSlot"`
	ServiceID   *uint  `json:"serviceId"`
	Description string `json:"description"`
}

type Availability struct {
	Date  string   `json:"date"`
	Free  []string `json:"free"`
	Taken []string `json:"taken"`
}
