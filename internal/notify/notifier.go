package notify

import (
	"context"
	"log"

	"decora_back_end/internal/models"
	"decora_back_end/internal/utils"
)

type Kind string

const (
	OrderConfirmed  Kind = "order_confirmed"
	RentalConfirmed Kind = "rental_confirmed"
	PaymentFailed   Kind = "payment_failed"
)

type Data struct {
	Order  *models.Order
	Rental *models.Rental
}

// Notifier : effet de bord best-effort déclenché après une transition
// de paiement. Un échec d'envoi ne remet jamais en cause l'état déjà
// committé.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, recipient string, data Data) error
}

// MailNotifier envoie les emails de confirmation via SMTP, en
// fire-and-forget : l'envoi part en goroutine et Notify rend nil.
type MailNotifier struct{}

func (MailNotifier) Notify(_ context.Context, kind Kind, recipient string, data Data) error {
	var subject, html string
	var pdf []byte

	switch kind {
	case OrderConfirmed:
		if data.Order == nil {
			return nil
		}
		subject = "Confirmation de votre commande Décora"
		html = utils.GenerateOrderConfirmationHTML(*data.Order)
		if b, err := utils.GenerateInvoicePDF(*data.Order); err != nil {
			log.Println("❌ Erreur génération PDF facture :", err)
		} else {
			pdf = b
		}
	case RentalConfirmed:
		if data.Rental == nil {
			return nil
		}
		subject = "Confirmation de votre location Décora"
		html = utils.GenerateRentalConfirmationHTML(*data.Rental)
	case PaymentFailed:
		subject = "Échec de votre paiement Décora"
		html = utils.GeneratePaymentFailedHTML()
	default:
		return nil
	}

	go func() {
		if err := utils.SendConfirmationEmail(recipient, subject, html, pdf); err != nil {
			log.Printf("❌ Erreur envoi e-mail %s à %s : %v", kind, recipient, err)
		} else {
			log.Printf("📧 E-mail %s envoyé à %s", kind, recipient)
		}
	}()

	return nil
}
