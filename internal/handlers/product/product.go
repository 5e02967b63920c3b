package product

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"
	"decora_back_end/internal/repository"
	"decora_back_end/internal/services"
)

const allProductsCacheKey = "products:all"

// CreateProduct crée un produit du catalogue. Un produit peut être à la
// vente, à la location, ou les deux ; au moins un des deux modes doit
// être proposé avec un prix cohérent.
func CreateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !p.IsSellable && !p.IsRentable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le produit doit être à la vente ou à la location"})
		return
	}
	if p.IsSellable && p.Price <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix de vente requis pour un produit à la vente"})
		return
	}
	if p.IsRentable && p.DailyRentalPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix journalier requis pour un produit à la location"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	p.ID = gocql.TimeUUID()
	p.IsActive = true
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	// Les specs d'options sont stockées en JSON : le format tagged-union
	// est validé au bind, un kind inconnu est rejeté avant l'écriture
	optionsJSON, err := json.Marshal(p.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Options de personnalisation invalides"})
		return
	}

	query := `INSERT INTO products (product_id, name, description, price, daily_rental_price, is_sellable, is_rentable, options, image_urls, tags, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := session.Query(query, p.ID, p.Name, p.Description, p.Price, p.DailyRentalPrice,
		p.IsSellable, p.IsRentable, string(optionsJSON), p.ImageURLs, p.Tags, p.IsActive,
		p.CreatedAt, p.UpdatedAt).WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit: " + err.Error()})
		return
	}

	database.RedisClient.Del(c.Request.Context(), allProductsCacheKey)

	// 🔄 Indexation Elasticsearch
	go services.IndexProduct(p)

	c.JSON(http.StatusOK, p)
}

// GetAllProducts liste les produits actifs, avec cache Redis.
func GetAllProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if val, err := database.RedisClient.Get(ctx, allProductsCacheKey).Result(); err == nil && val != "" {
		var cached []models.Product
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, daily_rental_price, is_sellable, is_rentable, options, image_urls, tags, is_active, created_at, updated_at FROM products`).
		WithContext(ctx).Iter()

	var products []models.Product
	var p models.Product
	var optionsJSON string

	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DailyRentalPrice, &p.IsSellable,
		&p.IsRentable, &optionsJSON, &p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive {
			if optionsJSON != "" {
				json.Unmarshal([]byte(optionsJSON), &p.Options)
			}
			products = append(products, p)
		}
		p = models.Product{}
		optionsJSON = ""
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	if data, err := json.Marshal(products); err == nil {
		database.RedisClient.Set(ctx, allProductsCacheKey, data, time.Hour)
	}

	c.JSON(http.StatusOK, products)
}

// GetProduct rend un produit actif par son id.
func GetProduct(c *gin.Context) {
	p, err := repository.Products{}.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProduct met à jour un produit existant et invalide les caches.
func UpdateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !p.IsSellable && !p.IsRentable {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le produit doit être à la vente ou à la location"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	p.ID = productID
	p.UpdatedAt = time.Now()

	optionsJSON, err := json.Marshal(p.Options)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Options de personnalisation invalides"})
		return
	}

	query := `UPDATE products SET name = ?, description = ?, price = ?, daily_rental_price = ?, is_sellable = ?, is_rentable = ?, options = ?, image_urls = ?, tags = ?, updated_at = ? WHERE product_id = ?`
	if err := session.Query(query, p.Name, p.Description, p.Price, p.DailyRentalPrice,
		p.IsSellable, p.IsRentable, string(optionsJSON), p.ImageURLs, p.Tags, p.UpdatedAt,
		productID).WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour: " + err.Error()})
		return
	}

	repository.Products{}.InvalidateProduct(c.Request.Context(), productID.String())
	go services.IndexProduct(p)

	c.JSON(http.StatusOK, p)
}

// DeactivateProduct retire un produit du catalogue sans le supprimer :
// les commandes et locations passées continuent de le référencer.
func DeactivateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`UPDATE products SET is_active = ?, updated_at = ? WHERE product_id = ?`,
		false, time.Now(), productID).WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur désactivation: " + err.Error()})
		return
	}

	repository.Products{}.InvalidateProduct(c.Request.Context(), productID.String())
	go services.RemoveProduct(productID.String())

	c.JSON(http.StatusOK, gin.H{"id": productID, "is_active": false})
}
