package product

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"decora_back_end/internal/database"
	"decora_back_end/internal/repository"
	"decora_back_end/internal/services"
)

// UploadProductImage pousse une image dans MinIO et la rattache au
// produit en une seule requête multipart.
func UploadProductImage(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	ext := filepath.Ext(header.Filename)
	objectName := fmt.Sprintf("products/%s/%d%s", productID, time.Now().UnixNano(), ext)

	imageURL, err := services.UploadFile(c.Request.Context(), services.ImageBucket, objectName, header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload MinIO: " + err.Error()})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existingURLs []string
	err = session.Query("SELECT image_urls FROM products WHERE product_id = ?", productID).
		WithContext(c.Request.Context()).Scan(&existingURLs)
	if err == gocql.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	existingURLs = append(existingURLs, imageURL)

	if err := session.Query("UPDATE products SET image_urls = ?, updated_at = ? WHERE product_id = ?",
		existingURLs, time.Now(), productID).WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	repository.Products{}.InvalidateProduct(c.Request.Context(), productID.String())

	c.JSON(http.StatusOK, gin.H{
		"message":   "✅ Image uploadée avec succès",
		"image_url": imageURL,
	})
}

// GetProductImages liste les images d'un produit en URLs signées 24h.
func GetProductImages(c *gin.Context) {
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

	var imageURLs []string
	if err := session.Query("SELECT image_urls FROM products WHERE product_id = ?", productID).
		WithContext(c.Request.Context()).Scan(&imageURLs); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	signedURLs := []string{}
	for _, u := range imageURLs {
		if u == "" {
			continue
		}
		if signed, err := services.GenerateSignedURL(c.Request.Context(), u, 24*time.Hour); err == nil {
			signedURLs = append(signedURLs, signed)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"images":     signedURLs,
	})
}
