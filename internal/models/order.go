package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts d'une commande d'achat.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

// Statuts d'une location. Seuls confirmed et active bloquent le calendrier.
type RentalStatus string

const (
	RentalPending   RentalStatus = "pending"
	RentalConfirmed RentalStatus = "confirmed"
	RentalActive    RentalStatus = "active"
	RentalCompleted RentalStatus = "completed"
	RentalCancelled RentalStatus = "cancelled"
	RentalFailed    RentalStatus = "failed"
)

// PricedLineItem : ligne de panier figée avec son prix au moment du
// checkout. line_total = unit_price × quantity, toujours recalculable.
type PricedLineItem struct {
	ProductID      string                   `json:"product_id"`
	Name           string                   `json:"name"`
	Quantity       int                      `json:"quantity"`
	Customizations map[string]SelectedValue `json:"customizations,omitempty"`
	RentalRange    *RentalRange             `json:"rental_range,omitempty"`
	RentalDays     int                      `json:"rental_days,omitempty"`
	UnitPrice      float64                  `json:"unit_price"`
	LineTotal      float64                  `json:"line_total"`
}

// Address : coordonnées de livraison/contact saisies au checkout.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID              gocql.UUID       `json:"id"`
	UserID          string           `json:"user_id"`
	Email           string           `json:"email"`
	Status          OrderStatus      `json:"status"`
	Items           []PricedLineItem `json:"items"`
	Subtotal        float64          `json:"subtotal"`
	Tax             float64          `json:"tax"`
	Shipping        float64          `json:"shipping"`
	Total           float64          `json:"total"`
	Address         Address          `json:"address"`
	StripeSessionID string           `json:"stripe_session_id,omitempty"`
	StripePaymentID string           `json:"stripe_payment_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type Rental struct {
	ID              gocql.UUID       `json:"id"`
	UserID          string           `json:"user_id"`
	Email           string           `json:"email"`
	Status          RentalStatus     `json:"status"`
	Items           []PricedLineItem `json:"items"`
	Subtotal        float64          `json:"subtotal"`
	Tax             float64          `json:"tax"`
	Deposit         float64          `json:"deposit"`
	Total           float64          `json:"total"`
	Address         Address          `json:"address"`
	StripeSessionID string           `json:"stripe_session_id,omitempty"`
	StripePaymentID string           `json:"stripe_payment_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CanTransitionRental valide la table des transitions légales.
// Tout le reste est refusé (cancelled reste réservé à l'admin).
func CanTransitionRental(from, to RentalStatus) bool {
	switch from {
	case RentalPending:
		return to == RentalConfirmed || to == RentalFailed || to == RentalCancelled
	case RentalConfirmed:
		return to == RentalActive || to == RentalCancelled
	case RentalActive:
		return to == RentalCompleted || to == RentalCancelled
	default:
		return false
	}
}
