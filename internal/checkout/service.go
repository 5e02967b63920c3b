package checkout

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"decora_back_end/internal/booking"
	"decora_back_end/internal/models"
	"decora_back_end/internal/payment"
	"decora_back_end/internal/pricing"

	"github.com/gocql/gocql"
)

type CheckoutKind string

const (
	KindPurchase CheckoutKind = "purchase"
	KindRental   CheckoutKind = "rental"
)

// Le calcul des totaux est fait une seule fois, côté serveur. Le
// front réaffiche ces montants, il ne les recalcule pas.
const (
	TaxRate      = 0.20
	DepositRate  = 0.30
	ShippingFlat = 0.0
)

// Catalog : lookup produit. Rend (nil, nil) quand le produit
// n'existe pas.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// OrderStore persiste les commandes d'achat. UpdateStatusIfPending
// est un compare-and-set : il n'applique la transition que si le
// statut stocké est encore pending, et rend le statut courant sinon.
type OrderStore interface {
	InsertPending(ctx context.Context, order *models.Order) error
	AttachSession(ctx context.Context, orderID gocql.UUID, sessionID string) error
	Get(ctx context.Context, orderID gocql.UUID) (*models.Order, error)
	UpdateStatusIfPending(ctx context.Context, orderID gocql.UUID, to models.OrderStatus, paymentID string) (bool, models.OrderStatus, error)
}

// RentalStore : pareil pour les locations.
type RentalStore interface {
	InsertPending(ctx context.Context, rental *models.Rental) error
	AttachSession(ctx context.Context, rentalID gocql.UUID, sessionID string) error
	Get(ctx context.Context, rentalID gocql.UUID) (*models.Rental, error)
	UpdateStatusIfPending(ctx context.Context, rentalID gocql.UUID, to models.RentalStatus, paymentID string) (bool, models.RentalStatus, error)
}

type CheckoutRequest struct {
	Kind    CheckoutKind
	UserID  string
	Email   string
	Items   []models.CartLineItem
	Address models.Address
}

type CheckoutResult struct {
	ID          string                  `json:"id"`
	Kind        CheckoutKind            `json:"kind"`
	SessionID   string                  `json:"session_id"`
	RedirectURL string                  `json:"redirect_url"`
	Items       []models.PricedLineItem `json:"items"`
	Subtotal    float64                 `json:"subtotal"`
	Tax         float64                 `json:"tax"`
	Shipping    float64                 `json:"shipping"`
	Deposit     float64                 `json:"deposit"`
	Total       float64                 `json:"total"`
}

// Service orchestre un checkout : validation, prix, persistance du
// Pending puis ouverture de session de paiement. Discipline
// d'écriture double : ligne locale d'abord, appel externe ensuite,
// rattachement de la référence en dernier ; tout échec après la
// création locale bascule la ligne en failed.
type Service struct {
	Catalog        Catalog
	Orders         OrderStore
	Rentals        RentalStore
	Availability   *booking.Checker
	Gateway        payment.Gateway
	SuccessURL     string
	CancelURL      string
	GatewayTimeout time.Duration
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if len(req.Items) == 0 {
		return nil, newValidationError("items", "panier vide")
	}
	if req.Kind != KindPurchase && req.Kind != KindRental {
		return nil, newValidationError("kind", "type de checkout inconnu")
	}

	if req.Kind == KindRental {
		if err := s.checkRentalRanges(ctx, req.Items); err != nil {
			return nil, err
		}
	}

	priced, totals, err := s.priceItems(ctx, req.Kind, req.Items)
	if err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindPurchase:
		return s.openPurchase(ctx, req, priced, totals)
	default:
		return s.openRental(ctx, req, priced, totals)
	}
}

// Quote valide et chiffre un panier sans rien persister ni toucher à
// la passerelle. Mêmes règles de prix que Checkout.
func (s *Service) Quote(ctx context.Context, kind CheckoutKind, items []models.CartLineItem) (*CheckoutResult, error) {
	if len(items) == 0 {
		return nil, newValidationError("items", "panier vide")
	}
	if kind != KindPurchase && kind != KindRental {
		return nil, newValidationError("kind", "type de checkout inconnu")
	}
	if kind == KindRental {
		if err := s.checkRentalRanges(ctx, items); err != nil {
			return nil, err
		}
	}

	priced, t, err := s.priceItems(ctx, kind, items)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{
		Kind:     kind,
		Items:    priced,
		Subtotal: t.subtotal,
		Tax:      t.tax,
		Shipping: t.shipping,
		Deposit:  t.deposit,
		Total:    t.total,
	}, nil
}

// checkRentalRanges valide chaque plage (start < end, start ≥
// aujourd'hui), refuse les chevauchements internes au panier et
// interroge le calendrier. Le checker seul n'empêche pas la course
// entre deux checkouts simultanés : la garantie finale est posée par
// l'insert conditionnel au moment de la confirmation.
func (s *Service) checkRentalRanges(ctx context.Context, items []models.CartLineItem) error {
	today := booking.DayOf(s.now())

	for i, item := range items {
		if item.RentalRange == nil {
			return newValidationError(item.ProductID, "plage de location manquante")
		}
		// La réservation est à la journée : les bornes sont ramenées à
		// minuit UTC ici pour que les jours facturés et les jours
		// bloqués au calendrier coïncident toujours
		rng := models.RentalRange{
			Start: booking.DayOf(item.RentalRange.Start),
			End:   booking.DayOf(item.RentalRange.End),
		}
		*item.RentalRange = rng
		if !rng.Start.Before(rng.End) {
			return newValidationError(item.ProductID, "la date de début doit précéder la date de fin")
		}
		if rng.Start.Before(today) {
			return newValidationError(item.ProductID, "la date de début est déjà passée")
		}

		// Deux lignes du même panier sur le même produit ne doivent
		// pas se chevaucher entre elles non plus
		for j := 0; j < i; j++ {
			prev := items[j]
			if prev.ProductID == item.ProductID && prev.RentalRange != nil && prev.RentalRange.Overlaps(rng) {
				return fmt.Errorf("%w: produit %s, plages du panier en conflit", ErrConflict, item.ProductID)
			}
		}

		productUUID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			return newValidationError(item.ProductID, "id produit invalide")
		}
		available, err := s.Availability.IsAvailable(ctx, productUUID, rng)
		if err != nil {
			return err
		}
		if !available {
			return fmt.Errorf("%w: produit %s du %s au %s", ErrConflict, item.ProductID,
				rng.Start.Format("2006-01-02"), rng.End.Format("2006-01-02"))
		}
	}
	return nil
}

type totals struct {
	subtotal, tax, shipping, deposit, total float64
}

func (s *Service) priceItems(ctx context.Context, kind CheckoutKind, items []models.CartLineItem) ([]models.PricedLineItem, totals, error) {
	var priced []models.PricedLineItem
	var violations []pricing.Violation
	var t totals

	for _, item := range items {
		if item.Quantity <= 0 {
			violations = append(violations, pricing.Violation{Key: item.ProductID, Reason: "quantité invalide"})
			continue
		}

		product, err := s.Catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, t, err
		}
		if product == nil {
			return nil, t, fmt.Errorf("%w: produit %s", ErrNotFound, item.ProductID)
		}

		var base float64
		var rentalDays int
		if kind == KindRental {
			if !product.IsRentable {
				return nil, t, fmt.Errorf("%w: %s n'est pas proposé à la location", ErrInvalidState, product.Name)
			}
			rentalDays = item.RentalRange.Days()
			base = product.DailyRentalPrice * float64(rentalDays)
		} else {
			if !product.IsSellable {
				return nil, t, fmt.Errorf("%w: %s n'est pas proposé à la vente", ErrInvalidState, product.Name)
			}
			base = product.Price
		}

		surcharge, v := pricing.PriceSelections(product.Options, item.Customizations)
		violations = append(violations, v...)

		unitPrice := base + surcharge
		lineTotal := unitPrice * float64(item.Quantity)
		t.subtotal += lineTotal

		priced = append(priced, models.PricedLineItem{
			ProductID:      item.ProductID,
			Name:           product.Name,
			Quantity:       item.Quantity,
			Customizations: item.Customizations,
			RentalRange:    item.RentalRange,
			RentalDays:     rentalDays,
			UnitPrice:      unitPrice,
			LineTotal:      lineTotal,
		})
	}

	if len(violations) > 0 {
		return nil, t, &ValidationError{Violations: violations}
	}

	// Arrondi au centime dès le calcul : le total stocké doit rester
	// égal, au centime près, à la somme des lignes facturées par le
	// prestataire
	t.tax = roundMoney(t.subtotal * TaxRate)
	if kind == KindPurchase {
		t.shipping = ShippingFlat
		t.total = t.subtotal + t.tax + t.shipping
	} else {
		t.deposit = roundMoney(t.subtotal * DepositRate)
		t.total = t.subtotal + t.tax + t.deposit
	}
	return priced, t, nil
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) openPurchase(ctx context.Context, req CheckoutRequest, items []models.PricedLineItem, t totals) (*CheckoutResult, error) {
	now := s.now()
	order := &models.Order{
		ID:        gocql.TimeUUID(),
		UserID:    req.UserID,
		Email:     req.Email,
		Status:    models.OrderPending,
		Items:     items,
		Subtotal:  t.subtotal,
		Tax:       t.tax,
		Shipping:  t.shipping,
		Total:     t.total,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 1. Ligne locale d'abord : le webhook ne peut jamais arriver
	// avant que son enregistrement existe
	if err := s.Orders.InsertPending(ctx, order); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, payment.KindOrder, order.ID.String(), req.Email, items, t)
	if err != nil {
		// 2. Échec passerelle : la ligne bascule en failed, jamais de
		// pending sans session qui survive à cet appel
		if _, _, casErr := s.Orders.UpdateStatusIfPending(ctx, order.ID, models.OrderFailed, ""); casErr != nil {
			log.Printf("❌ Impossible de basculer la commande %s en failed: %v", order.ID, casErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	// 3. Rattache la référence externe ; si l'écriture échoue la
	// ligne bascule aussi en failed, un pending sans session ne doit
	// jamais survivre à cet appel
	if err := s.Orders.AttachSession(ctx, order.ID, session.ID); err != nil {
		if _, _, casErr := s.Orders.UpdateStatusIfPending(ctx, order.ID, models.OrderFailed, ""); casErr != nil {
			log.Printf("❌ Impossible de basculer la commande %s en failed: %v", order.ID, casErr)
		}
		return nil, err
	}

	log.Printf("🛒 Commande %s créée (%.2f€) pour %s — session %s", order.ID, t.total, req.Email, session.ID)
	return &CheckoutResult{
		ID:          order.ID.String(),
		Kind:        KindPurchase,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Items:       items,
		Subtotal:    t.subtotal,
		Tax:         t.tax,
		Shipping:    t.shipping,
		Total:       t.total,
	}, nil
}

func (s *Service) openRental(ctx context.Context, req CheckoutRequest, items []models.PricedLineItem, t totals) (*CheckoutResult, error) {
	now := s.now()
	rental := &models.Rental{
		ID:        gocql.TimeUUID(),
		UserID:    req.UserID,
		Email:     req.Email,
		Status:    models.RentalPending,
		Items:     items,
		Subtotal:  t.subtotal,
		Tax:       t.tax,
		Deposit:   t.deposit,
		Total:     t.total,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Rentals.InsertPending(ctx, rental); err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, payment.KindRental, rental.ID.String(), req.Email, items, t)
	if err != nil {
		if _, _, casErr := s.Rentals.UpdateStatusIfPending(ctx, rental.ID, models.RentalFailed, ""); casErr != nil {
			log.Printf("❌ Impossible de basculer la location %s en failed: %v", rental.ID, casErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if err := s.Rentals.AttachSession(ctx, rental.ID, session.ID); err != nil {
		if _, _, casErr := s.Rentals.UpdateStatusIfPending(ctx, rental.ID, models.RentalFailed, ""); casErr != nil {
			log.Printf("❌ Impossible de basculer la location %s en failed: %v", rental.ID, casErr)
		}
		return nil, err
	}

	log.Printf("🎪 Location %s créée (%.2f€ dont %.2f€ de caution) pour %s — session %s",
		rental.ID, t.total, t.deposit, req.Email, session.ID)
	return &CheckoutResult{
		ID:          rental.ID.String(),
		Kind:        KindRental,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Items:       items,
		Subtotal:    t.subtotal,
		Tax:         t.tax,
		Deposit:     t.deposit,
		Total:       t.total,
	}, nil
}

// createSession ouvre la session de paiement avec un timeout borné :
// un timeout est un échec réessayable, jamais un succès implicite.
func (s *Service) createSession(ctx context.Context, kind, localID, email string, items []models.PricedLineItem, t totals) (*payment.Session, error) {
	timeout := s.GatewayTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sessionItems := make([]payment.SessionItem, 0, len(items)+2)
	for _, it := range items {
		name := it.Name
		if it.RentalDays > 0 {
			name = fmt.Sprintf("%s (location %d jours)", it.Name, it.RentalDays)
		}
		sessionItems = append(sessionItems, payment.SessionItem{
			Name:       name,
			Quantity:   int64(it.Quantity),
			UnitAmount: Cents(it.UnitPrice),
		})
	}
	sessionItems = append(sessionItems, payment.SessionItem{Name: "TVA (20%)", Quantity: 1, UnitAmount: Cents(t.tax)})
	if t.deposit > 0 {
		sessionItems = append(sessionItems, payment.SessionItem{Name: "Caution (30%)", Quantity: 1, UnitAmount: Cents(t.deposit)})
	}
	if t.shipping > 0 {
		sessionItems = append(sessionItems, payment.SessionItem{Name: "Livraison", Quantity: 1, UnitAmount: Cents(t.shipping)})
	}

	return s.Gateway.CreateSession(ctx, payment.SessionRequest{
		Kind:          kind,
		LocalID:       localID,
		CustomerEmail: email,
		Items:         sessionItems,
		SuccessURL:    s.SuccessURL,
		CancelURL:     s.CancelURL,
	})
}

// Cents convertit un montant en euros vers des centimes entiers,
// uniquement à la frontière avec le prestataire de paiement.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
