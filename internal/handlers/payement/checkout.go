package payement

import (
	"encoding/json"
	"log"
	"net/http"

	"decora_back_end/internal/checkout"
	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/repository"

	"github.com/gin-gonic/gin"
)

// Handler porte les dépendances du parcours de paiement. La passerelle
// n'est pas un singleton : elle est injectée à la construction, ce qui
// permet de brancher un faux Stripe dans les tests.
type Handler struct {
	Service      *checkout.Service
	Reconciler   *checkout.Reconciler
	Rentals      repository.Rentals
	Reservations repository.Reservations
	Journal      repository.ReconciliationLog
}

// Checkout ouvre une session de paiement pour le panier Redis de
// l'utilisateur. Le corps précise le type (purchase ou rental) et
// l'adresse ; les montants sont calculés côté serveur uniquement.
func (h *Handler) Checkout(c *gin.Context) {
	var req struct {
		Kind    string         `json:"kind" binding:"required"`
		Address models.Address `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// Le panier vit dans Redis, une clé par utilisateur
	cartKey := "cart:" + userID
	cartData, err := database.Redis.Get(c.Request.Context(), cartKey).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	var items []models.CartLineItem
	if err := json.Unmarshal([]byte(cartData), &items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	result, err := h.Service.Checkout(c.Request.Context(), checkout.CheckoutRequest{
		Kind:    checkout.CheckoutKind(req.Kind),
		UserID:  userID,
		Email:   email,
		Items:   items,
		Address: req.Address,
	})
	if err != nil {
		respondCheckoutError(c, err)
		return
	}

	// Le panier n'est vidé qu'une fois la session ouverte
	if err := database.Redis.Del(c.Request.Context(), cartKey).Err(); err != nil {
		log.Printf("⚠️ Panier %s non supprimé après checkout : %v", userID, err)
	}

	c.JSON(http.StatusOK, result)
}

// Quote calcule les montants du panier sans rien persister ni appeler
// la passerelle : le front s'en sert pour afficher le récapitulatif.
func (h *Handler) Quote(c *gin.Context) {
	var req struct {
		Kind  string                `json:"kind" binding:"required"`
		Items []models.CartLineItem `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	result, err := h.Service.Quote(c.Request.Context(), checkout.CheckoutKind(req.Kind), req.Items)
	if err != nil {
		respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
