package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/client"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeGateway implémente Gateway au-dessus des Checkout Sessions
// Stripe. Le client est porté par l'instance, pas par la clé globale
// du package stripe, pour rester injectable.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clé secrète Stripe manquante")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}, nil
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(it.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(it.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
		LineItems:     lineItems,
		Metadata: map[string]string{
			"kind":     req.Kind,
			"local_id": req.LocalID,
		},
	}
	params.Context = ctx

	cs, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}

	log.Printf("💳 Session Stripe créée : %s (%s %s)", cs.ID, req.Kind, req.LocalID)
	return &Session{ID: cs.ID, RedirectURL: cs.URL}, nil
}

// ParseEvent vérifie la signature puis normalise l'événement Stripe.
// Une signature invalide rend ErrUntrustedEvent : on ne fait jamais
// confiance au payload seul.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUntrustedEvent, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		cs, err := decodeSession(event)
		if err != nil {
			return nil, err
		}
		// completed peut arriver avant encaissement (virement, etc.)
		if event.Type == "checkout.session.completed" && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
			return &Event{Type: EventIgnored, SessionID: cs.ID}, nil
		}
		ev := &Event{
			Type:        EventPaymentSucceeded,
			SessionID:   cs.ID,
			AmountTotal: cs.AmountTotal,
		}
		if cs.PaymentIntent != nil {
			ev.PaymentID = cs.PaymentIntent.ID
		}
		return ev, nil

	case "checkout.session.async_payment_failed", "checkout.session.expired":
		cs, err := decodeSession(event)
		if err != nil {
			return nil, err
		}
		return &Event{Type: EventPaymentFailed, SessionID: cs.ID, AmountTotal: cs.AmountTotal}, nil

	default:
		log.Printf("ℹ️ Événement Stripe ignoré : %s", event.Type)
		return &Event{Type: EventIgnored}, nil
	}
}

func decodeSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("décodage session Stripe: %v", err)
	}
	return &cs, nil
}
