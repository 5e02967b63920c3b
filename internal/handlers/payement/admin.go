package payement

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"decora_back_end/internal/booking"
	"decora_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// ListReconciliationLog expose le journal des anomalies webhook
// (orphelins, écarts de montant, conflits de calendrier) pour la revue
// manuelle par l'équipe.
func (h *Handler) ListReconciliationLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	entries, err := h.Journal.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture journal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// UpdateRentalStatus fait avancer le cycle de vie d'une location :
// confirmed → active (matériel parti), active → completed (matériel
// rendu), ou annulation admin. Les transitions illégales sont refusées.
func (h *Handler) UpdateRentalStatus(c *gin.Context) {
	rentalID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID location invalide"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	to := models.RentalStatus(req.Status)

	rental, err := h.Rentals.Get(c.Request.Context(), rentalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture location"})
		return
	}
	if rental == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location introuvable"})
		return
	}

	if !models.CanTransitionRental(rental.Status, to) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Transition non autorisée",
			"from":  rental.Status,
			"to":    to,
		})
		return
	}

	applied, current, err := h.Rentals.UpdateStatusIf(c.Request.Context(), rentalID, rental.Status, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour"})
		return
	}
	if !applied {
		// Quelqu'un d'autre a bougé le statut entre la lecture et
		// l'écriture conditionnelle
		c.JSON(http.StatusConflict, gin.H{"error": "Statut modifié entre-temps", "current": current})
		return
	}

	// Une annulation ou un retour anticipé libère le calendrier
	if to == models.RentalCancelled || to == models.RentalCompleted {
		h.releaseRentalDays(c, rental)
	}

	log.Printf("🔧 Location %s : %s → %s", rentalID, rental.Status, to)
	c.JSON(http.StatusOK, gin.H{"id": rentalID, "status": to})
}

// ListProductReservations montre qui tient quelles journées d'un
// produit, typiquement pour instruire une entrée 'conflict' du
// journal de rapprochement.
func (h *Handler) ListProductReservations(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	start, err := time.Parse("2006-01-02", c.DefaultQuery("start", time.Now().UTC().Format("2006-01-02")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'start' invalide (AAAA-MM-JJ)"})
		return
	}
	end := start.AddDate(0, 3, 0)
	if raw := c.Query("end"); raw != "" {
		if end, err = time.Parse("2006-01-02", raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'end' invalide (AAAA-MM-JJ)"})
			return
		}
	}

	reservations, err := h.Reservations.ListDays(c.Request.Context(), productID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture calendrier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "reservations": reservations, "count": len(reservations)})
}

func (h *Handler) releaseRentalDays(c *gin.Context, rental *models.Rental) {
	for _, item := range rental.Items {
		if item.RentalRange == nil {
			continue
		}
		productID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			continue
		}
		days := booking.DaysIn(*item.RentalRange)
		if err := h.Reservations.ReleaseDays(c.Request.Context(), productID, days, rental.ID); err != nil {
			log.Printf("❌ Libération calendrier produit %s échouée : %v", item.ProductID, err)
		}
	}
}
