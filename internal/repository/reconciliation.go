package repository

import (
	"context"
	"log"
	"time"

	"decora_back_end/internal/database"

	"github.com/gocql/gocql"
)

// ReconciliationLog : journal durable des anomalies webhook
// (orphelins, écarts de montant, conflits au commit, événements en
// retard). C'est le point d'entrée de la revue manuelle : côté HTTP
// l'événement est acquitté, l'anomalie ne doit donc vivre qu'ici.
type ReconciliationLog struct{}

func (ReconciliationLog) Record(ctx context.Context, kind, sessionID, recordID, reason, details string) {
	session, err := database.GetOrdersSession()
	if err != nil {
		log.Printf("❌ Journal de réconciliation indisponible: %v", err)
		return
	}

	if err := session.Query(`INSERT INTO reconciliation_log (log_id, kind, session_id, record_id, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gocql.TimeUUID(), kind, sessionID, recordID, reason, details, time.Now()).WithContext(ctx).Exec(); err != nil {
		log.Printf("❌ Échec écriture journal de réconciliation (%s, session %s): %v", kind, sessionID, err)
	}
}

// ListRecent remonte les dernières anomalies pour l'écran admin.
func (ReconciliationLog) ListRecent(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT log_id, kind, session_id, record_id, reason, details, created_at
		FROM reconciliation_log LIMIT ?`, limit).WithContext(ctx).Iter()

	var entries []map[string]interface{}
	for {
		row := make(map[string]interface{})
		if !iter.MapScan(row) {
			break
		}
		entries = append(entries, row)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return entries, nil
}
