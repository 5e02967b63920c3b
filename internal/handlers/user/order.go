package user

import (
	"net/http"
	"strconv"

	"decora_back_end/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// MyOrders liste les commandes d'achat de l'utilisateur, les plus
// récentes d'abord.
func MyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orders, err := repository.Orders{}.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// MyRentals liste les locations de l'utilisateur.
func MyRentals(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rentals, err := repository.Rentals{}.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rentals": rentals, "count": len(rentals)})
}

// GetOrder rend une commande si elle appartient à l'utilisateur.
func GetOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	orderID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	order, err := repository.Orders{}.Get(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		return
	}
	if order == nil || order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetRental rend une location si elle appartient à l'utilisateur.
func GetRental(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	rentalID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID location invalide"})
		return
	}

	rental, err := repository.Rentals{}.Get(c.Request.Context(), rentalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture location"})
		return
	}
	if rental == nil || rental.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Location introuvable"})
		return
	}
	c.JSON(http.StatusOK, rental)
}
