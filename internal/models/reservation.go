package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Reservation : une journée de calendrier tenue par une location
// confirmée/active pour un produit. Stockée ligne par jour dans
// reservation_days (partition = product_id), ce qui permet le
// batch conditionnel IF NOT EXISTS sur une seule partition.
type Reservation struct {
	ProductID gocql.UUID `json:"product_id"`
	Day       time.Time  `json:"day"`
	RentalID  gocql.UUID `json:"rental_id"`
	UserID    string     `json:"user_id"`
}
