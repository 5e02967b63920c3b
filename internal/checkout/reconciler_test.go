package checkout

import (
	"context"
	"sync"
	"testing"

	"decora_back_end/internal/booking"
	"decora_back_end/internal/models"
	"decora_back_end/internal/notify"
	"decora_back_end/internal/payment"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerEnv struct {
	reconciler   *Reconciler
	orders       *fakeOrders
	rentals      *fakeRentals
	sessions     *fakeSessions
	reservations *fakeReservations
	notifier     *countingNotifier
	journal      *fakeLog
}

func newReconcilerEnv() *reconcilerEnv {
	sessions := &fakeSessions{m: make(map[string]sessionRef)}
	orders := &fakeOrders{orders: make(map[gocql.UUID]*models.Order), sessions: sessions}
	rentals := &fakeRentals{rentals: make(map[gocql.UUID]*models.Rental), sessions: sessions}
	reservations := &fakeReservations{days: make(map[string]map[int64]gocql.UUID)}
	notifier := &countingNotifier{}
	journal := &fakeLog{}

	return &reconcilerEnv{
		reconciler: &Reconciler{
			Orders:       orders,
			Rentals:      rentals,
			Sessions:     sessions,
			Reservations: reservations,
			Notifier:     notifier,
			Log:          journal,
		},
		orders:       orders,
		rentals:      rentals,
		sessions:     sessions,
		reservations: reservations,
		notifier:     notifier,
		journal:      journal,
	}
}

func (e *reconcilerEnv) seedOrder(total float64) (*models.Order, string) {
	ctx := context.Background()
	order := &models.Order{
		ID:     gocql.TimeUUID(),
		UserID: "user-1",
		Email:  "claire@example.be",
		Status: models.OrderPending,
		Total:  total,
	}
	_ = e.orders.InsertPending(ctx, order)
	sessionID := "cs_test_" + order.ID.String()[:8]
	_ = e.orders.AttachSession(ctx, order.ID, sessionID)
	return order, sessionID
}

func (e *reconcilerEnv) seedRental(total float64, items []models.PricedLineItem) (*models.Rental, string) {
	ctx := context.Background()
	rental := &models.Rental{
		ID:     gocql.TimeUUID(),
		UserID: "user-1",
		Email:  "claire@example.be",
		Status: models.RentalPending,
		Items:  items,
		Total:  total,
	}
	_ = e.rentals.InsertPending(ctx, rental)
	sessionID := "cs_test_" + rental.ID.String()[:8]
	_ = e.rentals.AttachSession(ctx, rental.ID, sessionID)
	return rental, sessionID
}

func succeededEvent(sessionID string, total float64) payment.Event {
	return payment.Event{
		Type:        payment.EventPaymentSucceeded,
		SessionID:   sessionID,
		PaymentID:   "pi_" + sessionID,
		AmountTotal: Cents(total),
	}
}

func TestReconcilerOrderPaid(t *testing.T) {
	env := newReconcilerEnv()
	order, sessionID := env.seedOrder(48.00)

	err := env.reconciler.Process(context.Background(), succeededEvent(sessionID, 48.00))
	require.NoError(t, err)

	stored, _ := env.orders.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderPaid, stored.Status)
	assert.Equal(t, "pi_"+sessionID, stored.StripePaymentID)
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerDuplicateDelivery(t *testing.T) {
	env := newReconcilerEnv()
	order, sessionID := env.seedOrder(48.00)
	ev := succeededEvent(sessionID, 48.00)

	require.NoError(t, env.reconciler.Process(context.Background(), ev))
	// Le prestataire relivre le même événement
	require.NoError(t, env.reconciler.Process(context.Background(), ev))
	require.NoError(t, env.reconciler.Process(context.Background(), ev))

	stored, _ := env.orders.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderPaid, stored.Status)
	// Une seule confirmation envoyée, pas une par livraison
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerOrphanSession(t *testing.T) {
	env := newReconcilerEnv()
	_, sessionID := env.seedOrder(48.00)

	err := env.reconciler.Process(context.Background(), succeededEvent("cs_inconnue_404", 10.00))
	require.NoError(t, err) // acquitté pour stopper les retries

	orphans := env.journal.byKind("orphan")
	require.Len(t, orphans, 1)
	assert.Equal(t, "cs_inconnue_404", orphans[0].sessionID)

	// L'enregistrement existant n'a pas bougé
	_, id, found, _ := env.sessions.Lookup(context.Background(), sessionID)
	require.True(t, found)
	stored, _ := env.orders.Get(context.Background(), id)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.Equal(t, 0, env.notifier.count())
}

func TestReconcilerAmountMismatch(t *testing.T) {
	env := newReconcilerEnv()
	order, sessionID := env.seedOrder(48.00)

	ev := succeededEvent(sessionID, 48.00)
	ev.AmountTotal = 4700 // un centime de moins par ligne truquée

	err := env.reconciler.Process(context.Background(), ev)
	require.ErrorIs(t, err, ErrAmountMismatch)

	// Jamais confirmé automatiquement, journalisé pour revue
	stored, _ := env.orders.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.Len(t, env.journal.byKind("amount_mismatch"), 1)
	assert.Equal(t, 0, env.notifier.count())
}

func TestReconcilerPaymentFailed(t *testing.T) {
	env := newReconcilerEnv()
	order, sessionID := env.seedOrder(48.00)

	err := env.reconciler.Process(context.Background(), payment.Event{
		Type:      payment.EventPaymentFailed,
		SessionID: sessionID,
	})
	require.NoError(t, err)

	stored, _ := env.orders.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderFailed, stored.Status)
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerLateFailureAfterPaid(t *testing.T) {
	env := newReconcilerEnv()
	order, sessionID := env.seedOrder(48.00)

	require.NoError(t, env.reconciler.Process(context.Background(), succeededEvent(sessionID, 48.00)))

	// L'échec arrive en retard : la transition est refusée et tracée
	err := env.reconciler.Process(context.Background(), payment.Event{
		Type:      payment.EventPaymentFailed,
		SessionID: sessionID,
	})
	require.NoError(t, err)

	stored, _ := env.orders.Get(context.Background(), order.ID)
	assert.Equal(t, models.OrderPaid, stored.Status)
	assert.Len(t, env.journal.byKind("late_event"), 1)
}

func TestReconcilerIgnoredEvent(t *testing.T) {
	env := newReconcilerEnv()
	require.NoError(t, env.reconciler.Process(context.Background(), payment.Event{Type: payment.EventIgnored}))
	assert.Empty(t, env.journal.entries)
}

func rentalItems(productID gocql.UUID, startDay, endDay int) []models.PricedLineItem {
	return []models.PricedLineItem{
		{
			ProductID:   productID.String(),
			Name:        "Arche florale",
			Quantity:    1,
			RentalRange: rentalRange(startDay, endDay),
			RentalDays:  endDay - startDay,
		},
	}
}

func TestReconcilerRentalConfirmedCommitsDays(t *testing.T) {
	env := newReconcilerEnv()
	productID := gocql.TimeUUID()
	rental, sessionID := env.seedRental(45.00, rentalItems(productID, 10, 13))

	err := env.reconciler.Process(context.Background(), succeededEvent(sessionID, 45.00))
	require.NoError(t, err)

	stored, _ := env.rentals.Get(context.Background(), rental.ID)
	assert.Equal(t, models.RentalConfirmed, stored.Status)

	days, _ := env.reservations.ReservedDays(context.Background(), productID,
		rentalRange(1, 30).Start, rentalRange(1, 30).End)
	assert.Len(t, days, 3)
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerRentalDuplicateKeepsDays(t *testing.T) {
	env := newReconcilerEnv()
	productID := gocql.TimeUUID()
	_, sessionID := env.seedRental(45.00, rentalItems(productID, 10, 13))
	ev := succeededEvent(sessionID, 45.00)

	require.NoError(t, env.reconciler.Process(context.Background(), ev))
	require.NoError(t, env.reconciler.Process(context.Background(), ev))

	days, _ := env.reservations.ReservedDays(context.Background(), productID,
		rentalRange(1, 30).Start, rentalRange(1, 30).End)
	assert.Len(t, days, 3)
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerRentalConflictAtCommit(t *testing.T) {
	env := newReconcilerEnv()
	productID := gocql.TimeUUID()

	// Une autre location tient déjà le 11 juin
	other := gocql.TimeUUID()
	_, _, err := env.reservations.CommitDays(context.Background(), productID,
		booking.DaysIn(*rentalRange(11, 12)), other, "autre-client")
	require.NoError(t, err)

	rental, sessionID := env.seedRental(45.00, rentalItems(productID, 10, 13))

	err = env.reconciler.Process(context.Background(), succeededEvent(sessionID, 45.00))
	require.ErrorIs(t, err, ErrConflict)

	// Le client a payé : on ne confirme pas, on ne jette pas non plus.
	// La location reste pending et le conflit est journalisé.
	stored, _ := env.rentals.Get(context.Background(), rental.ID)
	assert.Equal(t, models.RentalPending, stored.Status)
	assert.Len(t, env.journal.byKind("conflict"), 1)
	assert.Equal(t, 0, env.notifier.count())

	// Les journées du détenteur d'origine sont intactes, aucune des
	// nôtres n'est restée posée
	days, _ := env.reservations.ReservedDays(context.Background(), productID,
		rentalRange(1, 30).Start, rentalRange(1, 30).End)
	assert.Len(t, days, 1)
}

func TestReconcilerRentalMultiProductRollback(t *testing.T) {
	env := newReconcilerEnv()
	arche := gocql.TimeUUID()
	tente := gocql.TimeUUID()

	// Le second produit est déjà pris : la pose du premier doit être
	// annulée pour ne pas laisser de réservation à moitié committée
	other := gocql.TimeUUID()
	_, _, err := env.reservations.CommitDays(context.Background(), tente,
		booking.DaysIn(*rentalRange(10, 13)), other, "autre-client")
	require.NoError(t, err)

	items := append(rentalItems(arche, 10, 13), rentalItems(tente, 10, 13)...)
	_, sessionID := env.seedRental(90.00, items)

	err = env.reconciler.Process(context.Background(), succeededEvent(sessionID, 90.00))
	require.ErrorIs(t, err, ErrConflict)

	archeDays, _ := env.reservations.ReservedDays(context.Background(), arche,
		rentalRange(1, 30).Start, rentalRange(1, 30).End)
	assert.Empty(t, archeDays)
}

func TestReconcilerConcurrentRentalsSameDates(t *testing.T) {
	env := newReconcilerEnv()
	productID := gocql.TimeUUID()

	// Deux clients ont payé la même arche sur des plages qui se
	// chevauchent : exactement un des deux doit être confirmé
	_, session1 := env.seedRental(45.00, rentalItems(productID, 10, 13))
	_, session2 := env.seedRental(45.00, rentalItems(productID, 12, 15))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sessionID := range []string{session1, session2} {
		wg.Add(1)
		go func(i int, sessionID string) {
			defer wg.Done()
			errs[i] = env.reconciler.Process(context.Background(), succeededEvent(sessionID, 45.00))
		}(i, sessionID)
	}
	wg.Wait()

	var confirmed, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			confirmed++
		case assert.ErrorIs(t, err, ErrConflict):
			conflicted++
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, conflicted)

	env.rentals.mu.Lock()
	var confirmedRentals int
	for _, r := range env.rentals.rentals {
		if r.Status == models.RentalConfirmed {
			confirmedRentals++
		}
	}
	env.rentals.mu.Unlock()
	assert.Equal(t, 1, confirmedRentals)
	assert.Equal(t, 1, env.notifier.count())
}

func TestReconcilerRentalFailedEvent(t *testing.T) {
	env := newReconcilerEnv()
	productID := gocql.TimeUUID()
	rental, sessionID := env.seedRental(45.00, rentalItems(productID, 10, 13))

	err := env.reconciler.Process(context.Background(), payment.Event{
		Type:      payment.EventPaymentFailed,
		SessionID: sessionID,
	})
	require.NoError(t, err)

	stored, _ := env.rentals.Get(context.Background(), rental.ID)
	assert.Equal(t, models.RentalFailed, stored.Status)

	// Aucune journée posée : un paiement échoué ne touche pas au calendrier
	days, _ := env.reservations.ReservedDays(context.Background(), productID,
		rentalRange(1, 30).Start, rentalRange(1, 30).End)
	assert.Empty(t, days)
	assert.Equal(t, notify.PaymentFailed, env.notifier.calls[0])
}
