package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"decora_back_end/internal/booking"
	"decora_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	vaseID  = gocql.TimeUUID()
	archeID = gocql.TimeUUID()
)

func testEnv() (*Service, *fakeOrders, *fakeRentals, *fakeReservations, *fakeGateway) {
	sessions := &fakeSessions{m: make(map[string]sessionRef)}
	orders := &fakeOrders{orders: make(map[gocql.UUID]*models.Order), sessions: sessions}
	rentals := &fakeRentals{rentals: make(map[gocql.UUID]*models.Rental), sessions: sessions}
	reservations := &fakeReservations{days: make(map[string]map[int64]gocql.UUID)}
	gateway := &fakeGateway{}

	catalog := &fakeCatalog{products: map[string]*models.Product{
		vaseID.String(): {
			ID:         vaseID,
			Name:       "Vase en céramique",
			Price:      20.00,
			IsSellable: true,
			IsActive:   true,
			Options: map[string]models.OptionSpec{
				"gravure": {
					Kind: models.OptionEngraving,
					Engraving: &models.EngravingSpec{
						Kind:              models.EngravingText,
						BasePrice:         2.00,
						PricePerCharacter: 0.10,
						MaxLength:         10,
					},
				},
			},
		},
		archeID.String(): {
			ID:               archeID,
			Name:             "Arche florale",
			DailyRentalPrice: 10.00,
			IsRentable:       true,
			IsActive:         true,
		},
	}}

	svc := &Service{
		Catalog:      catalog,
		Orders:       orders,
		Rentals:      rentals,
		Availability: &booking.Checker{Store: reservations},
		Gateway:      gateway,
		SuccessURL:   "https://decora.be/merci",
		CancelURL:    "https://decora.be/panier",
		Now:          func() time.Time { return testNow },
	}
	return svc, orders, rentals, reservations, gateway
}

func rentalRange(startDay, endDay int) *models.RentalRange {
	return &models.RentalRange{
		Start: time.Date(2025, 6, startDay, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, endDay, 0, 0, 0, 0, time.UTC),
	}
}

func TestCheckoutPurchaseTotals(t *testing.T) {
	svc, orders, _, _, gateway := testEnv()

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:   KindPurchase,
		UserID: "user-1",
		Email:  "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)

	// 2 × 20.00 = 40.00, TVA 20% = 8.00, livraison 0
	assert.Equal(t, 40.00, res.Subtotal)
	assert.Equal(t, 8.00, res.Tax)
	assert.Equal(t, 0.00, res.Shipping)
	assert.Equal(t, 48.00, res.Total)
	assert.Equal(t, 0.00, res.Deposit)

	orderID, err := gocql.ParseUUID(res.ID)
	require.NoError(t, err)
	stored, err := orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.OrderPending, stored.Status)
	assert.Equal(t, res.SessionID, stored.StripeSessionID)
	assert.Equal(t, 48.00, stored.Total)

	// La session facturée doit sommer exactement au total local
	require.Len(t, gateway.requests, 1)
	var billed int64
	for _, it := range gateway.requests[0].Items {
		billed += it.UnitAmount * it.Quantity
	}
	assert.Equal(t, Cents(res.Total), billed)
}

func TestCheckoutRentalTotals(t *testing.T) {
	svc, _, rentals, _, gateway := testEnv()

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:   KindRental,
		UserID: "user-1",
		Email:  "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(10, 13)},
		},
	})
	require.NoError(t, err)

	// 3 jours × 10.00 = 30.00, TVA 6.00, caution 30% = 9.00
	assert.Equal(t, 30.00, res.Subtotal)
	assert.Equal(t, 6.00, res.Tax)
	assert.Equal(t, 9.00, res.Deposit)
	assert.Equal(t, 45.00, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.Items[0].RentalDays)

	rentalID, err := gocql.ParseUUID(res.ID)
	require.NoError(t, err)
	stored, err := rentals.Get(context.Background(), rentalID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.RentalPending, stored.Status)

	require.Len(t, gateway.requests, 1)
	var billed int64
	for _, it := range gateway.requests[0].Items {
		billed += it.UnitAmount * it.Quantity
	}
	assert.Equal(t, Cents(res.Total), billed)
}

func TestCheckoutEngravingSurcharge(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{
				ProductID: vaseID.String(),
				Quantity:  1,
				Customizations: map[string]models.SelectedValue{
					"gravure": {Text: "Joyeux Mariage"},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	// "Joyeux Mariage" = 14 caractères → 2.00 + 4 × 0.10 = 2.40
	assert.InDelta(t, 22.40, res.Items[0].UnitPrice, 1e-9)
	assert.InDelta(t, 22.40, res.Subtotal, 1e-9)
}

func TestCheckoutLineTotalsRecomputable(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	var subtotal float64
	for _, it := range res.Items {
		assert.InDelta(t, it.UnitPrice*float64(it.Quantity), it.LineTotal, 1e-9)
		subtotal += it.LineTotal
	}
	assert.InDelta(t, subtotal, res.Subtotal, 1e-9)
	assert.InDelta(t, res.Subtotal+res.Tax+res.Shipping+res.Deposit, res.Total, 1e-9)
}

func TestCheckoutGatewayFailureMarksFailed(t *testing.T) {
	svc, orders, _, _, gateway := testEnv()
	gateway.fail = true

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 1},
		},
	})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	// La ligne locale existe mais a basculé en failed, sans session
	orders.mu.Lock()
	defer orders.mu.Unlock()
	require.Len(t, orders.orders, 1)
	for _, o := range orders.orders {
		assert.Equal(t, models.OrderFailed, o.Status)
		assert.Empty(t, o.StripeSessionID)
	}
}

func TestCheckoutAttachFailureMarksFailed(t *testing.T) {
	svc, orders, rentals, _, _ := testEnv()
	orders.attachErr = errors.New("écriture refusée")
	rentals.attachErr = errors.New("écriture refusée")

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 1},
		},
	})
	require.Error(t, err)

	// La session a été créée mais pas rattachée : la ligne ne doit
	// pas rester en pending sans référence externe
	orders.mu.Lock()
	require.Len(t, orders.orders, 1)
	for _, o := range orders.orders {
		assert.Equal(t, models.OrderFailed, o.Status)
		assert.Empty(t, o.StripeSessionID)
	}
	orders.mu.Unlock()

	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(10, 13)},
		},
	})
	require.Error(t, err)

	rentals.mu.Lock()
	defer rentals.mu.Unlock()
	require.Len(t, rentals.rentals, 1)
	for _, r := range rentals.rentals {
		assert.Equal(t, models.RentalFailed, r.Status)
		assert.Empty(t, r.StripeSessionID)
	}
}

func TestCheckoutRentalPartialDayBounds(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	// Bornes non alignées sur minuit : du 10 juin 18h au 13 juin 6h.
	// La facturation et le calendrier doivent compter les mêmes
	// journées, soit [10, 11, 12]
	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: &models.RentalRange{
				Start: time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC),
			}},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	line := res.Items[0]
	require.NotNil(t, line.RentalRange)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), line.RentalRange.Start)
	assert.Equal(t, time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC), line.RentalRange.End)
	assert.Equal(t, 3, line.RentalDays)
	assert.Equal(t, line.RentalDays, len(booking.DaysIn(*line.RentalRange)))
	assert.Equal(t, 30.00, res.Subtotal)

	// Une plage partielle contenue dans une seule journée ne fait
	// aucune journée facturable
	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: &models.RentalRange{
				Start: time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC),
			}},
		},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: gocql.TimeUUID().String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutModeNotOffered(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	// L'arche n'est pas à la vente
	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	// Le vase n'est pas à la location
	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 1, RentalRange: rentalRange(10, 12)},
		},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCheckoutRentalRangeValidation(t *testing.T) {
	svc, _, _, _, _ := testEnv()
	ctx := context.Background()

	var vErr *ValidationError

	// Plage manquante
	_, err := svc.Checkout(ctx, CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{{ProductID: archeID.String(), Quantity: 1}},
	})
	require.ErrorAs(t, err, &vErr)

	// Début après la fin
	_, err = svc.Checkout(ctx, CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(13, 10)},
		},
	})
	require.ErrorAs(t, err, &vErr)

	// Début dans le passé (testNow est le 1er juin)
	past := &models.RentalRange{
		Start: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 5, 22, 0, 0, 0, 0, time.UTC),
	}
	_, err = svc.Checkout(ctx, CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: past},
		},
	})
	require.ErrorAs(t, err, &vErr)
}

func TestCheckoutRentalCartOverlap(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(10, 15)},
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(13, 17)},
		},
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCheckoutRentalUnavailableDates(t *testing.T) {
	svc, _, _, reservations, _ := testEnv()

	// Le 11 juin est déjà tenu par une autre location
	held := gocql.TimeUUID()
	_, _, err := reservations.CommitDays(context.Background(), archeID,
		[]time.Time{time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)}, held, "autre-client")
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(10, 13)},
		},
	})
	assert.ErrorIs(t, err, ErrConflict)

	// La journée tenue incluse en dernière position bloque aussi
	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(10, 12)},
		},
	})
	assert.ErrorIs(t, err, ErrConflict)

	// La plage qui démarre après la journée tenue passe
	_, err = svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindRental,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: archeID.String(), Quantity: 1, RentalRange: rentalRange(12, 15)},
		},
	})
	assert.NoError(t, err)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	var vErr *ValidationError
	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
	})
	assert.ErrorAs(t, err, &vErr)
}

func TestCheckoutInvalidQuantity(t *testing.T) {
	svc, _, _, _, _ := testEnv()

	var vErr *ValidationError
	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Kind:  KindPurchase,
		Email: "claire@example.be",
		Items: []models.CartLineItem{
			{ProductID: vaseID.String(), Quantity: 0},
		},
	})
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Violations)
}

func TestCentsRounding(t *testing.T) {
	assert.Equal(t, int64(4800), Cents(48.00))
	assert.Equal(t, int64(2240), Cents(22.40))
	assert.Equal(t, int64(1), Cents(0.005))
	assert.Equal(t, int64(0), Cents(0))
}
