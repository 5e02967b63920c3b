package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"decora_back_end/internal/models"
	"decora_back_end/internal/notify"
	"decora_back_end/internal/payment"

	"github.com/gocql/gocql"
)

// Doublures en mémoire des stores. Les écritures conditionnelles sont
// faites sous mutex : elles reproduisent l'atomicité que ScyllaDB
// fournit via LWT, ce qui permet les tests de concurrence.

type fakeCatalog struct {
	products map[string]*models.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type fakeSessions struct {
	mu sync.Mutex
	m  map[string]sessionRef
}

type sessionRef struct {
	kind string
	id   gocql.UUID
}

func (f *fakeSessions) register(sessionID, kind string, id gocql.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[sessionID] = sessionRef{kind: kind, id: id}
}

func (f *fakeSessions) Lookup(_ context.Context, sessionID string) (string, gocql.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.m[sessionID]
	if !ok {
		return "", gocql.UUID{}, false, nil
	}
	return ref.kind, ref.id, true, nil
}

type fakeOrders struct {
	mu        sync.Mutex
	orders    map[gocql.UUID]*models.Order
	sessions  *fakeSessions
	attachErr error
}

func (f *fakeOrders) InsertPending(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrders) AttachSession(_ context.Context, orderID gocql.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return errors.New("commande absente")
	}
	o.StripeSessionID = sessionID
	f.sessions.register(sessionID, payment.KindOrder, orderID)
	return nil
}

func (f *fakeOrders) Get(_ context.Context, orderID gocql.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) UpdateStatusIfPending(_ context.Context, orderID gocql.UUID, to models.OrderStatus, paymentID string) (bool, models.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return false, "", errors.New("commande absente")
	}
	if o.Status != models.OrderPending {
		return false, o.Status, nil
	}
	o.Status = to
	if paymentID != "" {
		o.StripePaymentID = paymentID
	}
	return true, to, nil
}

type fakeRentals struct {
	mu        sync.Mutex
	rentals   map[gocql.UUID]*models.Rental
	sessions  *fakeSessions
	attachErr error
}

func (f *fakeRentals) InsertPending(_ context.Context, rental *models.Rental) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rental
	f.rentals[rental.ID] = &cp
	return nil
}

func (f *fakeRentals) AttachSession(_ context.Context, rentalID gocql.UUID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	r, ok := f.rentals[rentalID]
	if !ok {
		return errors.New("location absente")
	}
	r.StripeSessionID = sessionID
	f.sessions.register(sessionID, payment.KindRental, rentalID)
	return nil
}

func (f *fakeRentals) Get(_ context.Context, rentalID gocql.UUID) (*models.Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rentals[rentalID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRentals) UpdateStatusIfPending(_ context.Context, rentalID gocql.UUID, to models.RentalStatus, paymentID string) (bool, models.RentalStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rentals[rentalID]
	if !ok {
		return false, "", errors.New("location absente")
	}
	if r.Status != models.RentalPending {
		return false, r.Status, nil
	}
	r.Status = to
	if paymentID != "" {
		r.StripePaymentID = paymentID
	}
	return true, to, nil
}

// fakeReservations reproduit la sémantique du batch conditionnel :
// tout ou rien par produit, idempotent pour le même détenteur.
type fakeReservations struct {
	mu   sync.Mutex
	days map[string]map[int64]gocql.UUID // productID → jour unix → rental détenteur
}

func (f *fakeReservations) CommitDays(_ context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID, _ string) (bool, gocql.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := productID.String()
	if f.days[key] == nil {
		f.days[key] = make(map[int64]gocql.UUID)
	}
	for _, d := range days {
		if owner, taken := f.days[key][d.Unix()]; taken && owner != rentalID {
			return false, owner, nil
		}
	}
	for _, d := range days {
		f.days[key][d.Unix()] = rentalID
	}
	return true, rentalID, nil
}

func (f *fakeReservations) ReleaseDays(_ context.Context, productID gocql.UUID, days []time.Time, rentalID gocql.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := productID.String()
	for _, d := range days {
		if f.days[key][d.Unix()] == rentalID {
			delete(f.days[key], d.Unix())
		}
	}
	return nil
}

func (f *fakeReservations) ReservedDays(_ context.Context, productID gocql.UUID, start, end time.Time) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for unix := range f.days[productID.String()] {
		d := time.Unix(unix, 0).UTC()
		if !d.Before(start) && d.Before(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	fail     bool
	counter  int
	requests []payment.SessionRequest
}

func (f *fakeGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("stripe indisponible")
	}
	f.counter++
	f.requests = append(f.requests, req)
	id := fmt.Sprintf("cs_test_%d", f.counter)
	return &payment.Session{ID: id, RedirectURL: "https://checkout.stripe.com/pay/" + id}, nil
}

func (f *fakeGateway) ParseEvent([]byte, string) (*payment.Event, error) {
	return nil, errors.New("non utilisé dans les tests")
}

type countingNotifier struct {
	mu    sync.Mutex
	calls []notify.Kind
}

func (n *countingNotifier) Notify(_ context.Context, kind notify.Kind, _ string, _ notify.Data) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, kind)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type logEntry struct {
	kind, sessionID, recordID, reason string
}

type fakeLog struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *fakeLog) Record(_ context.Context, kind, sessionID, recordID, reason, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{kind: kind, sessionID: sessionID, recordID: recordID, reason: reason})
}

func (l *fakeLog) byKind(kind string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}
