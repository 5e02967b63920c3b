package booking

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	corebooking "decora_back_end/internal/booking"
	"decora_back_end/internal/models"
	"decora_back_end/internal/repository"
)

// CheckAvailability répond si un produit est libre sur [start, end).
// Réponse indicative : la garantie réelle est posée au paiement.
func CheckAvailability(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'start' invalide (AAAA-MM-JJ)"})
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'end' invalide (AAAA-MM-JJ)"})
		return
	}
	if !start.Before(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start doit précéder end"})
		return
	}

	checker := corebooking.Checker{Store: repository.Reservations{}}
	available, err := checker.IsAvailable(c.Request.Context(), productID, models.RentalRange{Start: start, End: end})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture calendrier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"start":      start.Format("2006-01-02"),
		"end":        end.Format("2006-01-02"),
		"available":  available,
	})
}

// GetCalendar liste les journées déjà réservées d'un produit sur un
// mois, pour griser les dates côté front.
func GetCalendar(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	month, err := time.Parse("2006-01", c.DefaultQuery("month", time.Now().Format("2006-01")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'month' invalide (AAAA-MM)"})
		return
	}
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	days, err := repository.Reservations{}.ReservedDays(c.Request.Context(), productID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture calendrier"})
		return
	}

	reserved := make([]string, 0, len(days))
	for _, d := range days {
		reserved = append(reserved, d.Format("2006-01-02"))
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":    productID,
		"month":         start.Format("2006-01"),
		"reserved_days": reserved,
	})
}
