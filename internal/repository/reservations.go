package repository

import (
	"context"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"

	"github.com/gocql/gocql"
)

// Reservations : une ligne par journée réservée, partitionnée par
// produit. Toutes les journées d'une plage tombent dans la même
// partition, donc un batch logged de INSERT ... IF NOT EXISTS est
// appliqué atomiquement : de deux commits concurrents sur des plages
// qui se chevauchent, exactement un passe. Jamais de check séparé
// suivi d'un insert.
type Reservations struct{}

// CommitDays pose toutes les journées ou aucune. Si le batch n'est
// pas appliqué mais que toutes les journées existantes appartiennent
// déjà à cette location (relivraison du même webhook), c'est un
// succès idempotent.
func (Reservations) CommitDays(ctx context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID, userID string) (bool, gocql.UUID, error) {
	if len(days) == 0 {
		return true, rentalID, nil
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return false, gocql.UUID{}, err
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, day := range days {
		batch.Query(`INSERT INTO reservation_days (product_id, day, rental_id, user_id)
			VALUES (?, ?, ?, ?) IF NOT EXISTS`, productID, day, rentalID, userID)
	}

	first := make(map[string]interface{})
	applied, iter, err := session.MapExecuteBatchCAS(batch, first)
	if err != nil {
		return false, gocql.UUID{}, err
	}

	if applied {
		iter.Close()
		return true, rentalID, nil
	}

	// Batch refusé : regarde à qui appartiennent les journées déjà
	// présentes
	ownAll := true
	var owner gocql.UUID
	inspect := func(row map[string]interface{}) {
		if ap, ok := row["[applied]"].(bool); ok && ap {
			return
		}
		if existing, ok := row["rental_id"].(gocql.UUID); ok && existing != rentalID {
			ownAll = false
			owner = existing
		}
	}

	inspect(first)
	for {
		row := make(map[string]interface{})
		if !iter.MapScan(row) {
			break
		}
		inspect(row)
	}
	if err := iter.Close(); err != nil {
		return false, gocql.UUID{}, err
	}

	if ownAll {
		return true, rentalID, nil
	}
	return false, owner, nil
}

// ReleaseDays supprime uniquement les journées détenues par cette
// location (delete conditionnel, une libération ne peut pas voler les
// journées d'une autre location).
func (Reservations) ReleaseDays(ctx context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID) error {
	if len(days) == 0 {
		return nil
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, day := range days {
		batch.Query(`DELETE FROM reservation_days WHERE product_id = ? AND day = ? IF rental_id = ?`,
			productID, day, rentalID)
	}

	first := make(map[string]interface{})
	_, iter, err := session.MapExecuteBatchCAS(batch, first)
	if err != nil {
		return err
	}
	return iter.Close()
}

// ReservedDays liste les journées tenues dans [start, end) pour un
// produit (lecture du calendrier et décision de disponibilité).
func (Reservations) ReservedDays(ctx context.Context, productID gocql.UUID, start, end time.Time) ([]time.Time, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT day FROM reservation_days WHERE product_id = ? AND day >= ? AND day < ?`,
		productID, start, end).WithContext(ctx).Iter()

	var days []time.Time
	var day time.Time
	for iter.Scan(&day) {
		days = append(days, day.UTC())
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return days, nil
}

// ListDays rend les journées tenues avec leur détenteur, pour
// l'inspection admin d'un conflit journalisé.
func (Reservations) ListDays(ctx context.Context, productID gocql.UUID, start, end time.Time) ([]models.Reservation, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT product_id, day, rental_id, user_id FROM reservation_days WHERE product_id = ? AND day >= ? AND day < ?`,
		productID, start, end).WithContext(ctx).Iter()

	var out []models.Reservation
	var r models.Reservation
	for iter.Scan(&r.ProductID, &r.Day, &r.RentalID, &r.UserID) {
		r.Day = r.Day.UTC()
		out = append(out, r)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
