package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"decora_back_end/internal/booking"
	"decora_back_end/internal/models"
	"decora_back_end/internal/notify"
	"decora_back_end/internal/payment"

	"github.com/gocql/gocql"
)

// SessionIndex retrouve l'enregistrement local depuis l'id de session
// du prestataire. found=false pour une session inconnue (orphelin).
type SessionIndex interface {
	Lookup(ctx context.Context, sessionID string) (kind string, id gocql.UUID, found bool, err error)
}

// ReservationStore committe les journées d'une location en une seule
// écriture conditionnelle par produit (batch IF NOT EXISTS sur la
// partition du produit) : jamais de check séparé suivi d'un insert.
type ReservationStore interface {
	// CommitDays rend applied=false avec l'id du détenteur si au
	// moins une journée appartient à une autre location. Re-committer
	// ses propres journées est un no-op appliqué (idempotence).
	CommitDays(ctx context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID, userID string) (applied bool, owner gocql.UUID, err error)
	ReleaseDays(ctx context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID) error
}

// ReconciliationLog garde une trace durable des anomalies webhook
// (orphelins, doublons conflictuels, écarts de montant) : le payeur
// n'est pas l'acheteur, personne ne verra une erreur HTTP.
type ReconciliationLog interface {
	Record(ctx context.Context, kind, sessionID, recordID, reason, details string)
}

// Reconciler applique les événements de paiement aux commandes et
// locations. Chaque transition terminale est un compare-and-set
// conditionné sur le statut pending : le premier écrivain gagne, les
// livraisons dupliquées et les événements en retard sont des no-ops.
type Reconciler struct {
	Orders       OrderStore
	Rentals      RentalStore
	Sessions     SessionIndex
	Reservations ReservationStore
	Notifier     notify.Notifier
	Log          ReconciliationLog
}

// Process traite un événement déjà authentifié par le handler (la
// signature a été vérifiée avant d'arriver ici). Un retour nil vaut
// acquittement ; ErrAmountMismatch et ErrConflict sont acquittés par
// le handler mais laissés en pending pour revue manuelle.
func (r *Reconciler) Process(ctx context.Context, ev payment.Event) error {
	if ev.Type == payment.EventIgnored {
		return nil
	}

	kind, id, found, err := r.Sessions.Lookup(ctx, ev.SessionID)
	if err != nil {
		return err
	}
	if !found {
		// Orphelin : on acquitte pour stopper les retries du
		// prestataire, et on journalise pour réconciliation manuelle
		log.Printf("⚠️ Webhook orphelin : session %s inconnue", ev.SessionID)
		r.Log.Record(ctx, "orphan", ev.SessionID, "", "session inconnue",
			fmt.Sprintf("type=%s montant=%d", ev.Type, ev.AmountTotal))
		return nil
	}

	switch kind {
	case payment.KindOrder:
		return r.processOrder(ctx, ev, id)
	case payment.KindRental:
		return r.processRental(ctx, ev, id)
	default:
		r.Log.Record(ctx, "orphan", ev.SessionID, id.String(), "kind inconnu", kind)
		return nil
	}
}

func (r *Reconciler) processOrder(ctx context.Context, ev payment.Event, orderID gocql.UUID) error {
	order, err := r.Orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		r.Log.Record(ctx, "orphan", ev.SessionID, orderID.String(), "commande absente", "")
		return nil
	}

	if ev.Type == payment.EventPaymentFailed {
		if order.Status == models.OrderFailed {
			return nil // doublon
		}
		applied, current, err := r.Orders.UpdateStatusIfPending(ctx, orderID, models.OrderFailed, ev.PaymentID)
		if err != nil {
			return err
		}
		if !applied {
			r.logLateEvent(ctx, ev, orderID.String(), string(current))
			return nil
		}
		log.Printf("💔 Paiement échoué, commande %s → failed", orderID)
		r.notifyBestEffort(ctx, notify.PaymentFailed, order.Email, notify.Data{Order: order})
		return nil
	}

	// Paiement réussi
	if order.Status == models.OrderPaid {
		log.Printf("🔁 Doublon webhook pour la commande %s, déjà payée", orderID)
		return nil
	}

	if err := r.checkAmount(ctx, ev, orderID.String(), order.Total); err != nil {
		return err
	}

	applied, current, err := r.Orders.UpdateStatusIfPending(ctx, orderID, models.OrderPaid, ev.PaymentID)
	if err != nil {
		return err
	}
	if !applied {
		if current == models.OrderPaid {
			return nil // course entre deux livraisons du même événement
		}
		r.logLateEvent(ctx, ev, orderID.String(), string(current))
		return nil
	}

	log.Printf("✅ Commande %s confirmée payée (%.2f€)", orderID, order.Total)
	order.Status = models.OrderPaid
	order.StripePaymentID = ev.PaymentID
	r.notifyBestEffort(ctx, notify.OrderConfirmed, order.Email, notify.Data{Order: order})
	return nil
}

func (r *Reconciler) processRental(ctx context.Context, ev payment.Event, rentalID gocql.UUID) error {
	rental, err := r.Rentals.Get(ctx, rentalID)
	if err != nil {
		return err
	}
	if rental == nil {
		r.Log.Record(ctx, "orphan", ev.SessionID, rentalID.String(), "location absente", "")
		return nil
	}

	if ev.Type == payment.EventPaymentFailed {
		if rental.Status == models.RentalFailed {
			return nil
		}
		applied, current, err := r.Rentals.UpdateStatusIfPending(ctx, rentalID, models.RentalFailed, ev.PaymentID)
		if err != nil {
			return err
		}
		if !applied {
			r.logLateEvent(ctx, ev, rentalID.String(), string(current))
			return nil
		}
		log.Printf("💔 Paiement échoué, location %s → failed", rentalID)
		r.notifyBestEffort(ctx, notify.PaymentFailed, rental.Email, notify.Data{Rental: rental})
		return nil
	}

	if rental.Status == models.RentalConfirmed || rental.Status == models.RentalActive || rental.Status == models.RentalCompleted {
		log.Printf("🔁 Doublon webhook pour la location %s, déjà confirmée", rentalID)
		return nil
	}

	if err := r.checkAmount(ctx, ev, rentalID.String(), rental.Total); err != nil {
		return err
	}

	// Les journées sont committées avant la transition : l'insert
	// conditionnel par partition produit est la seule vraie barrière
	// contre deux locations payées sur les mêmes dates
	if err := r.commitReservations(ctx, ev, rental); err != nil {
		return err
	}

	applied, current, err := r.Rentals.UpdateStatusIfPending(ctx, rentalID, models.RentalConfirmed, ev.PaymentID)
	if err != nil {
		return err
	}
	if !applied {
		if current == models.RentalConfirmed {
			return nil
		}
		// Un événement d'échec a gagné la course : on relâche les
		// journées qu'on venait de poser
		r.releaseReservations(ctx, rental)
		r.logLateEvent(ctx, ev, rentalID.String(), string(current))
		return nil
	}

	log.Printf("✅ Location %s confirmée (%.2f€), calendrier committé", rentalID, rental.Total)
	rental.Status = models.RentalConfirmed
	rental.StripePaymentID = ev.PaymentID
	r.notifyBestEffort(ctx, notify.RentalConfirmed, rental.Email, notify.Data{Rental: rental})
	return nil
}

// commitReservations pose les journées ligne par ligne ; en cas de
// conflit sur une ligne, les lignes déjà posées sont relâchées. La
// location reste pending, journalisée pour revue manuelle (le client
// a payé : le remboursement est une décision humaine).
func (r *Reconciler) commitReservations(ctx context.Context, ev payment.Event, rental *models.Rental) error {
	var committed []models.PricedLineItem

	for _, item := range rental.Items {
		if item.RentalRange == nil {
			continue
		}
		productID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			return newValidationError(item.ProductID, "id produit invalide")
		}
		days := booking.DaysIn(*item.RentalRange)

		applied, owner, err := r.Reservations.CommitDays(ctx, productID, days, rental.ID, rental.UserID)
		if err != nil {
			r.releaseItems(ctx, committed, rental.ID)
			return err
		}
		if !applied {
			r.releaseItems(ctx, committed, rental.ID)
			log.Printf("⚠️ Conflit de réservation au commit : produit %s déjà tenu par %s", item.ProductID, owner)
			r.Log.Record(ctx, "conflict", ev.SessionID, rental.ID.String(),
				"journées déjà réservées au moment du paiement",
				fmt.Sprintf("produit=%s détenteur=%s", item.ProductID, owner))
			return fmt.Errorf("%w: produit %s", ErrConflict, item.ProductID)
		}
		committed = append(committed, item)
	}
	return nil
}

func (r *Reconciler) releaseReservations(ctx context.Context, rental *models.Rental) {
	r.releaseItems(ctx, rental.Items, rental.ID)
}

func (r *Reconciler) releaseItems(ctx context.Context, items []models.PricedLineItem, rentalID gocql.UUID) {
	for _, item := range items {
		if item.RentalRange == nil {
			continue
		}
		productID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			continue
		}
		if err := r.Reservations.ReleaseDays(ctx, productID, booking.DaysIn(*item.RentalRange), rentalID); err != nil {
			log.Printf("❌ Échec libération des journées du produit %s : %v", item.ProductID, err)
		}
	}
}

// checkAmount compare le montant payé au total local. Un écart bloque
// la confirmation automatique : on ne fait confiance ni à l'un ni à
// l'autre en silence.
func (r *Reconciler) checkAmount(ctx context.Context, ev payment.Event, recordID string, localTotal float64) error {
	expected := Cents(localTotal)
	if ev.AmountTotal == expected {
		return nil
	}
	log.Printf("🚨 Écart de montant sur %s : payé %d centimes, attendu %d", recordID, ev.AmountTotal, expected)
	r.Log.Record(ctx, "amount_mismatch", ev.SessionID, recordID,
		"montant payé différent du total local",
		fmt.Sprintf("payé=%d attendu=%d", ev.AmountTotal, expected))
	return fmt.Errorf("%w: payé %d, attendu %d centimes", ErrAmountMismatch, ev.AmountTotal, expected)
}

func (r *Reconciler) logLateEvent(ctx context.Context, ev payment.Event, recordID, current string) {
	log.Printf("⚠️ Événement %s en retard pour %s, statut déjà %s", ev.Type, recordID, current)
	r.Log.Record(ctx, "late_event", ev.SessionID, recordID,
		"transition refusée, statut non pending", "statut="+current)
}

// notifyBestEffort : l'échec de notification ne remet jamais en cause
// la transition déjà committée.
func (r *Reconciler) notifyBestEffort(ctx context.Context, kind notify.Kind, recipient string, data notify.Data) {
	if r.Notifier == nil {
		return
	}
	if err := r.Notifier.Notify(ctx, kind, recipient, data); err != nil {
		log.Printf("❌ Notification %s échouée pour %s : %v", kind, recipient, err)
	}
}
