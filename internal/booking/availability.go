package booking

import (
	"context"
	"time"

	"decora_back_end/internal/models"

	"github.com/gocql/gocql"
)

// ReservedDaysLookup expose les journées déjà tenues par des
// locations confirmées ou actives. Les locations pending ne
// possèdent aucune journée : un panier non payé ne bloque pas
// le calendrier.
type ReservedDaysLookup interface {
	ReservedDays(ctx context.Context, productID gocql.UUID, start, end time.Time) ([]time.Time, error)
}

// Checker décide si une plage candidate entre en conflit avec les
// réservations existantes. C'est une fonction de décision, pas un
// verrou : la garantie anti-course est portée par l'écriture
// conditionnelle au moment du commit (repository.Reservations).
type Checker struct {
	Store ReservedDaysLookup
}

// IsAvailable vérifie qu'aucune journée de [start, end) n'est tenue
// pour ce produit. Intervalle demi-ouvert : une location qui se
// termine le jour où une autre commence ne gêne pas.
func (c *Checker) IsAvailable(ctx context.Context, productID gocql.UUID, rng models.RentalRange) (bool, error) {
	days, err := c.Store.ReservedDays(ctx, productID, DayOf(rng.Start), DayOf(rng.End))
	if err != nil {
		return false, err
	}
	return len(days) == 0, nil
}

// DayOf tronque un instant à sa journée UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysIn liste les journées de l'intervalle demi-ouvert [start, end),
// une entrée par jour de calendrier. C'est l'unité de réservation.
func DaysIn(rng models.RentalRange) []time.Time {
	var days []time.Time
	for d := DayOf(rng.Start); d.Before(DayOf(rng.End)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
