package product

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/services"
)

// SearchProducts cherche dans le catalogue, Elasticsearch d'abord,
// repli sur un filtre en mémoire si l'index est indisponible.
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 🔎 1️⃣ Elasticsearch (prioritaire)
	results, err := services.SearchProducts(query)
	if err == nil {
		for i := range results {
			if urls, ok := results[i]["image_urls"].([]interface{}); ok {
				signed := []string{}
				for _, u := range urls {
					if str, ok := u.(string); ok && str != "" {
						if signedURL, err := services.GenerateSignedURL(c.Request.Context(), str, 24*time.Hour); err == nil {
							signed = append(signed, signedURL)
						}
					}
				}
				results[i]["image_urls"] = signed
			}
		}
		c.JSON(http.StatusOK, results)
		return
	}

	// 🔁 2️⃣ Repli ScyllaDB : scan complet filtré en mémoire, acceptable
	// pour la taille de notre catalogue
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, daily_rental_price, is_sellable, is_rentable, options, image_urls, tags, is_active FROM products`).
		WithContext(c.Request.Context()).Iter()

	var products []models.Product
	var p models.Product
	var optionsJSON string

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DailyRentalPrice, &p.IsSellable,
		&p.IsRentable, &optionsJSON, &p.ImageURLs, &p.Tags, &p.IsActive) {
		if p.IsActive && (containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) || containsTagsIgnoreCase(p.Tags, query)) {
			if optionsJSON != "" {
				json.Unmarshal([]byte(optionsJSON), &p.Options)
			}
			products = append(products, p)
		}
		p = models.Product{}
		optionsJSON = ""
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsTagsIgnoreCase(tags []string, query string) bool {
	for _, tag := range tags {
		if containsIgnoreCase(tag, query) {
			return true
		}
	}
	return false
}
