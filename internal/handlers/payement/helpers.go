package payement

import (
	"errors"
	"net/http"

	"decora_back_end/internal/checkout"

	"github.com/gin-gonic/gin"
)

// respondCheckoutError mappe les erreurs métier du checkout vers les
// statuts HTTP. Les violations de validation sont détaillées champ par
// champ pour que le front puisse les afficher.
func respondCheckoutError(c *gin.Context, err error) {
	var vErr *checkout.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier invalide", "violations": vErr.Violations})
	case errors.Is(err, checkout.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkout.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Dates indisponibles", "details": err.Error()})
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Paiement momentanément indisponible, réessayez"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}
