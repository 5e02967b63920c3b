package payment

import (
	"context"
	"errors"
)

// ErrUntrustedEvent : signature du webhook invalide. L'événement est
// rejeté et journalisé, jamais appliqué.
var ErrUntrustedEvent = errors.New("signature d'événement invalide")

// Référence du type d'enregistrement local porté dans les métadonnées
// de session (et réutilisé par la table orders_by_session).
const (
	KindOrder  = "order"
	KindRental = "rental"
)

type SessionItem struct {
	Name       string
	Quantity   int64
	UnitAmount int64 // centimes
}

type SessionRequest struct {
	Kind          string // KindOrder | KindRental
	LocalID       string // id de la commande/location déjà persistée
	CustomerEmail string
	Items         []SessionItem
	SuccessURL    string
	CancelURL     string
}

type Session struct {
	ID          string
	RedirectURL string
}

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventIgnored          EventType = "ignored"
)

// Event : notification de paiement déjà authentifiée, normalisée
// depuis le format du prestataire.
type Event struct {
	Type        EventType
	SessionID   string
	PaymentID   string
	AmountTotal int64 // centimes, montant effectivement payé
}

// Gateway est la capacité de paiement injectée dans l'orchestrateur
// et le handler webhook (doublures déterministes en test).
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
