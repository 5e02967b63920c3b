package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/payment"

	"github.com/gocql/gocql"
)

// Rentals : persistance des locations, même discipline que Orders
// avec la caution et les plages par ligne en plus.
type Rentals struct{}

func (Rentals) InsertPending(ctx context.Context, rental *models.Rental) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(rental.Items)
	if err != nil {
		return err
	}
	addressJSON, err := json.Marshal(rental.Address)
	if err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO rentals (rental_id, user_id, email, status, items, subtotal, tax, deposit, total, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rental.ID, rental.UserID, rental.Email, string(models.RentalPending), string(itemsJSON),
		rental.Subtotal, rental.Tax, rental.Deposit, rental.Total, string(addressJSON),
		rental.CreatedAt, rental.UpdatedAt).WithContext(ctx).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO rentals_by_user (user_id, created_at, rental_id)
		VALUES (?, ?, ?)`, rental.UserID, rental.CreatedAt, rental.ID).WithContext(ctx).Exec()
}

func (Rentals) AttachSession(ctx context.Context, rentalID gocql.UUID, sessionID string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	if err := session.Query(`UPDATE rentals SET stripe_session_id = ?, updated_at = ? WHERE rental_id = ?`,
		sessionID, time.Now(), rentalID).WithContext(ctx).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO orders_by_session (session_id, kind, record_id)
		VALUES (?, ?, ?)`, sessionID, payment.KindRental, rentalID).WithContext(ctx).Exec()
}

func (Rentals) Get(ctx context.Context, rentalID gocql.UUID) (*models.Rental, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var r models.Rental
	var status, itemsJSON, addressJSON string
	err = session.Query(`SELECT rental_id, user_id, email, status, items, subtotal, tax, deposit, total, address, stripe_session_id, stripe_payment_id, created_at, updated_at
		FROM rentals WHERE rental_id = ?`, rentalID).WithContext(ctx).Scan(
		&r.ID, &r.UserID, &r.Email, &status, &itemsJSON, &r.Subtotal, &r.Tax, &r.Deposit,
		&r.Total, &addressJSON, &r.StripeSessionID, &r.StripePaymentID, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Status = models.RentalStatus(status)
	if err := json.Unmarshal([]byte(itemsJSON), &r.Items); err != nil {
		return nil, fmt.Errorf("lignes de location corrompues pour %s: %v", rentalID, err)
	}
	if addressJSON != "" {
		if err := json.Unmarshal([]byte(addressJSON), &r.Address); err != nil {
			return nil, fmt.Errorf("adresse corrompue pour %s: %v", rentalID, err)
		}
	}
	return &r, nil
}

func (Rentals) UpdateStatusIfPending(ctx context.Context, rentalID gocql.UUID, to models.RentalStatus, paymentID string) (bool, models.RentalStatus, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, "", err
	}

	var current string
	applied, err := session.Query(`UPDATE rentals SET status = ?, stripe_payment_id = ?, updated_at = ? WHERE rental_id = ? IF status = ?`,
		string(to), paymentID, time.Now(), rentalID, string(models.RentalPending)).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, "", err
	}
	if applied {
		return true, to, nil
	}
	return false, models.RentalStatus(current), nil
}

// UpdateStatusIf : CAS générique pour le cycle de vie admin
// (confirmed → active → completed, annulation). La table des
// transitions légales est vérifiée par l'appelant.
func (Rentals) UpdateStatusIf(ctx context.Context, rentalID gocql.UUID, from, to models.RentalStatus) (bool, models.RentalStatus, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, "", err
	}

	var current string
	applied, err := session.Query(`UPDATE rentals SET status = ?, updated_at = ? WHERE rental_id = ? IF status = ?`,
		string(to), time.Now(), rentalID, string(from)).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, "", err
	}
	if applied {
		return true, to, nil
	}
	return false, models.RentalStatus(current), nil
}

func (r Rentals) ListByUser(ctx context.Context, userID string, limit int) ([]models.Rental, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT rental_id FROM rentals_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit).WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	rentals := make([]models.Rental, 0, len(ids))
	for _, rid := range ids {
		rental, err := r.Get(ctx, rid)
		if err != nil {
			return nil, err
		}
		if rental != nil {
			rentals = append(rentals, *rental)
		}
	}
	return rentals, nil
}
