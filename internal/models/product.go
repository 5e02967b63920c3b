package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID               gocql.UUID            `json:"id" db:"product_id"`
	Name             string                `json:"name" db:"name"`
	Description      string                `json:"description" db:"description"`
	Price            float64               `json:"price" db:"price"`
	DailyRentalPrice float64               `json:"daily_rental_price" db:"daily_rental_price"`
	IsSellable       bool                  `json:"is_sellable" db:"is_sellable"`
	IsRentable       bool                  `json:"is_rentable" db:"is_rentable"`
	Options          map[string]OptionSpec `json:"options,omitempty"`
	ImageURLs        []string              `json:"image_urls" db:"image_urls"`
	Tags             []string              `json:"tags" db:"tags"`
	IsActive         bool                  `json:"is_active" db:"is_active"`
	CreatedAt        time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at" db:"updated_at"`
}
