package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

const productCacheTTL = 10 * time.Minute

// Products : lookup catalogue avec cache Redis read-through. Rend
// (nil, nil) pour un produit inconnu ou désactivé.
type Products struct{}

func (Products) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	cacheKey := "product:" + id
	if val, err := database.RedisClient.Get(ctx, cacheKey).Result(); err == nil && val != "" {
		var p models.Product
		if json.Unmarshal([]byte(val), &p) == nil {
			return &p, nil
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	productUUID, _ := gocql.ParseUUID(id)
	var p models.Product
	var optionsJSON string
	err = session.Query(`SELECT product_id, name, description, price, daily_rental_price, is_sellable, is_rentable, options, image_urls, tags, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, productUUID).WithContext(ctx).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DailyRentalPrice, &p.IsSellable,
		&p.IsRentable, &optionsJSON, &p.ImageURLs, &p.Tags, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, nil
	}

	if optionsJSON != "" {
		if err := json.Unmarshal([]byte(optionsJSON), &p.Options); err != nil {
			return nil, fmt.Errorf("options de personnalisation corrompues pour %s: %v", id, err)
		}
	}

	if data, err := json.Marshal(p); err == nil {
		database.RedisClient.Set(ctx, cacheKey, data, productCacheTTL)
	}
	return &p, nil
}

// InvalidateProduct purge le cache après une mutation admin.
func (Products) InvalidateProduct(ctx context.Context, id string) {
	database.RedisClient.Del(ctx, "product:"+id, "products:all")
}
