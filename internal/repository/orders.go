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

// Orders : persistance des commandes d'achat dans le keyspace orders.
// Les lignes et l'adresse sont figées en JSON dans la ligne (le prix
// au moment du checkout ne doit plus bouger avec le catalogue).
type Orders struct{}

func (Orders) InsertPending(ctx context.Context, order *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}
	addressJSON, err := json.Marshal(order.Address)
	if err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO orders (order_id, user_id, email, status, items, subtotal, tax, shipping, total, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.Email, string(models.OrderPending), string(itemsJSON),
		order.Subtotal, order.Tax, order.Shipping, order.Total, string(addressJSON),
		order.CreatedAt, order.UpdatedAt).WithContext(ctx).Exec(); err != nil {
		return err
	}

	// Table de lookup par utilisateur pour "mes commandes"
	return session.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id)
		VALUES (?, ?, ?)`, order.UserID, order.CreatedAt, order.ID).WithContext(ctx).Exec()
}

func (Orders) AttachSession(ctx context.Context, orderID gocql.UUID, sessionID string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	if err := session.Query(`UPDATE orders SET stripe_session_id = ?, updated_at = ? WHERE order_id = ?`,
		sessionID, time.Now(), orderID).WithContext(ctx).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO orders_by_session (session_id, kind, record_id)
		VALUES (?, ?, ?)`, sessionID, payment.KindOrder, orderID).WithContext(ctx).Exec()
}

func (Orders) Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	var o models.Order
	var status, itemsJSON, addressJSON string
	err = session.Query(`SELECT order_id, user_id, email, status, items, subtotal, tax, shipping, total, address, stripe_session_id, stripe_payment_id, created_at, updated_at
		FROM orders WHERE order_id = ?`, orderID).WithContext(ctx).Scan(
		&o.ID, &o.UserID, &o.Email, &status, &itemsJSON, &o.Subtotal, &o.Tax, &o.Shipping,
		&o.Total, &addressJSON, &o.StripeSessionID, &o.StripePaymentID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	o.Status = models.OrderStatus(status)
	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("lignes de commande corrompues pour %s: %v", orderID, err)
	}
	if addressJSON != "" {
		if err := json.Unmarshal([]byte(addressJSON), &o.Address); err != nil {
			return nil, fmt.Errorf("adresse corrompue pour %s: %v", orderID, err)
		}
	}
	return &o, nil
}

// UpdateStatusIfPending : transition LWT. IF status = 'pending'
// garantit que le premier écrivain gagne et que les doublons sont des
// no-ops ; le statut courant revient dans la ligne CAS.
func (Orders) UpdateStatusIfPending(ctx context.Context, orderID gocql.UUID, to models.OrderStatus, paymentID string) (bool, models.OrderStatus, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, "", err
	}

	var current string
	applied, err := session.Query(`UPDATE orders SET status = ?, stripe_payment_id = ?, updated_at = ? WHERE order_id = ? IF status = ?`,
		string(to), paymentID, time.Now(), orderID, string(models.OrderPending)).WithContext(ctx).ScanCAS(&current)
	if err != nil {
		return false, "", err
	}
	if applied {
		return true, to, nil
	}
	return false, models.OrderStatus(current), nil
}

// ListByUser remonte les commandes d'un utilisateur, plus récentes
// d'abord.
func (o Orders) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ? LIMIT ?`,
		userID, limit).WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, oid := range ids {
		order, err := o.Get(ctx, oid)
		if err != nil {
			return nil, err
		}
		if order != nil {
			orders = append(orders, *order)
		}
	}
	return orders, nil
}
