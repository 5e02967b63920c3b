package models

import "time"

// RentalRange est un intervalle demi-ouvert [Start, End) à la journée.
type RentalRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days retourne le nombre de jours facturés pour [Start, End).
func (r RentalRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Overlaps applique la règle d'intervalle demi-ouvert : deux plages
// qui se touchent sur une borne ne se chevauchent pas.
func (r RentalRange) Overlaps(other RentalRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

type CartLineItem struct {
	ProductID      string                   `json:"product_id"`
	Name           string                   `json:"name,omitempty"`
	Quantity       int                      `json:"quantity"`
	Customizations map[string]SelectedValue `json:"customizations,omitempty"`
	RentalRange    *RentalRange             `json:"rental_range,omitempty"`
}

type Cart struct {
	UserID string         `json:"user_id"`
	Items  []CartLineItem `json:"items"`
}
