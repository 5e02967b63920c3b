package payement

import (
	"errors"
	"log"
	"net/http"

	"decora_back_end/internal/checkout"
	"decora_back_end/internal/payment"

	"github.com/gin-gonic/gin"
)

// StripeWebhook reçoit les événements du prestataire. La signature est
// vérifiée avant tout traitement ; un événement non signé est rejeté.
// Les anomalies métier (écart de montant, conflit de calendrier) sont
// acquittées en 200 : elles sont journalisées côté base, réémettre
// l'événement ne les résoudra pas.
func (h *Handler) StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	ev, err := h.Service.Gateway.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Println("❌ Signature Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	}

	if ev.Type == payment.EventIgnored {
		c.Status(http.StatusOK)
		return
	}
	log.Printf("📥 Événement de paiement reçu : %s (session %s)", ev.Type, ev.SessionID)

	if err := h.Reconciler.Process(c.Request.Context(), *ev); err != nil {
		if errors.Is(err, checkout.ErrAmountMismatch) || errors.Is(err, checkout.ErrConflict) {
			// Journalisé pour revue manuelle, on stoppe les retries
			c.Status(http.StatusOK)
			return
		}
		// Erreur transitoire (base injoignable...) : 500 pour que le
		// prestataire relivre l'événement
		log.Printf("❌ Traitement webhook échoué : %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Traitement échoué"})
		return
	}

	c.Status(http.StatusOK)
}
