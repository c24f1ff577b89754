package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a purchasable IT service offered in the catalog.
type Item struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Popular     bool            `json:"popular"`
	Duration    *string         `json:"duration,omitempty"`
	Features    []string        `json:"features"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type ListFilter struct {
	Category        string
	PopularOnly     bool
	IncludeInactive bool
}

type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Popular     bool            `json:"popular"`
	Duration    *string         `json:"duration,omitempty"`
	Features    []string        `json:"features"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
}

type UpdateInput struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Popular     *bool            `json:"popular,omitempty"`
	Duration    *string          `json:"duration,omitempty"`
	Features    []string         `json:"features,omitempty"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

func (u UpdateInput) empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.Category == nil &&
		u.Popular == nil && u.Duration == nil && u.Features == nil && u.ImageURL == nil && u.Active == nil
}
