package review

import "time"

type Review struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	UserName  string    `json:"userName"`
	ServiceID *uint     `json:"serviceId,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateInput struct {
	ServiceID *uint  `json:"serviceId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// Summary is the public aggregate shown next to the approved reviews.
type Summary struct {
	Reviews []Review `json:"reviews"`
	Count   int      `json:"count"`
	Average float64  `json:"average"`
}
