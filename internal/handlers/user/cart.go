package user

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const cartTTL = 30 * 24 * time.Hour

func cartKey(userID string) string {
	return "cart:" + userID
}

func loadCart(c *gin.Context, userID string) []models.CartLineItem {
	data, err := database.RedisClient.Get(c.Request.Context(), cartKey(userID)).Result()
	if err != nil && err != redis.Nil {
		log.Printf("⚠️ Lecture du panier de %s impossible: %v", userID, err)
	}
	var cart []models.CartLineItem
	if data != "" {
		if err := json.Unmarshal([]byte(data), &cart); err != nil {
			log.Printf("⚠️ Panier de %s illisible, repart de zéro: %v", userID, err)
		}
	}
	return cart
}

func saveCart(c *gin.Context, userID string, cart []models.CartLineItem) {
	jsonData, err := json.Marshal(cart)
	if err != nil {
		log.Printf("❌ Sérialisation du panier de %s impossible: %v", userID, err)
		return
	}
	if err := database.RedisClient.Set(c.Request.Context(), cartKey(userID), jsonData, cartTTL).Err(); err != nil {
		log.Printf("⚠️ Sauvegarde du panier de %s impossible: %v", userID, err)
	}
	publishCartUpdate(c.Request.Context(), userID, cart)
}

func GetCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	cart := loadCart(c, userID)
	if cart == nil {
		cart = []models.CartLineItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": cart})
}

// AddToCart ajoute une ligne au panier Redis. Une ligne de location
// porte sa plage de dates ; deux plages différentes du même produit
// font deux lignes distinctes.
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		ProductID      string                          `json:"product_id" binding:"required"`
		Quantity       int                             `json:"quantity"`
		Customizations map[string]models.SelectedValue `json:"customizations"`
		RentalRange    *models.RentalRange             `json:"rental_range"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}
	if input.RentalRange != nil && !input.RentalRange.Start.Before(input.RentalRange.End) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plage de location invalide"})
		return
	}

	product, err := repository.Products{}.GetProduct(c.Request.Context(), input.ProductID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	item := models.CartLineItem{
		ProductID:      input.ProductID,
		Name:           product.Name,
		Quantity:       input.Quantity,
		Customizations: input.Customizations,
		RentalRange:    input.RentalRange,
	}

	cart := loadCart(c, userID)

	// Fusionne avec une ligne identique : même produit, même plage,
	// mêmes personnalisations
	found := false
	for i := range cart {
		if cart[i].ProductID == item.ProductID && sameRange(cart[i].RentalRange, item.RentalRange) && sameCustomizations(cart[i].Customizations, item.Customizations) {
			cart[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, item)
	}

	saveCart(c, userID, cart)
	c.JSON(http.StatusOK, gin.H{"message": "Produit ajouté au panier", "items": cart})
}

func RemoveFromCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	productID := c.Param("productId")
	cart := loadCart(c, userID)

	newCart := []models.CartLineItem{}
	for _, item := range cart {
		if item.ProductID != productID {
			newCart = append(newCart, item)
		}
	}

	saveCart(c, userID, newCart)
	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé du panier", "items": newCart})
}

func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	if err := database.RedisClient.Del(c.Request.Context(), cartKey(userID)).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}
	publishCartUpdate(c.Request.Context(), userID, []models.CartLineItem{})

	c.JSON(http.StatusOK, gin.H{"message": "Panier vidé avec succès"})
}

func sameRange(a, b *models.RentalRange) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

func sameCustomizations(a, b map[string]models.SelectedValue) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		if vb, ok := b[k]; !ok || va != vb {
			return false
		}
	}
	return true
}
