package repository

import (
	"context"
	"errors"

	"decora_back_end/internal/database"

	"github.com/gocql/gocql"
)

// Sessions : table de lookup session Stripe → enregistrement local.
// Alimentée par Orders.AttachSession / Rentals.AttachSession, lue par
// le réconciliateur webhook.
type Sessions struct{}

func (Sessions) Lookup(ctx context.Context, sessionID string) (string, gocql.UUID, bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return "", gocql.UUID{}, false, err
	}

	var kind string
	var recordID gocql.UUID
	err = session.Query(`SELECT kind, record_id FROM orders_by_session WHERE session_id = ?`,
		sessionID).WithContext(ctx).Scan(&kind, &recordID)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", gocql.UUID{}, false, nil
	}
	if err != nil {
		return "", gocql.UUID{}, false, err
	}
	return kind, recordID, true, nil
}
