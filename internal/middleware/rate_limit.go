package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"decora_back_end/internal/database"

	"github.com/gin-gonic/gin"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 3
	CheckoutMaxRequests = 10
	APIMaxRequests      = 100

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute
	CheckoutWindow   = 1 * time.Minute
	APIWindow        = 1 * time.Minute
)

// LoginRateLimit limite les tentatives de connexion par email. Les
// échecs (401) incrémentent le compteur, un succès le remet à zéro.
func LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, _ := io.ReadAll(c.Request.Body)

		var input struct {
			Email string `json:"email"`
		}
		if err := json.Unmarshal(bodyBytes, &input); err != nil || input.Email == "" {
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		ctx := c.Request.Context()
		key := "login_attempts:" + input.Email
		cooldownKey := "login_cooldown:" + input.Email

		if database.Redis.Exists(ctx, cooldownKey).Val() > 0 {
			ttl := database.Redis.TTL(ctx, cooldownKey).Val()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Réessayez dans %d minutes", int(ttl.Minutes())),
				"retry_after": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		attempts, _ := database.Redis.Get(ctx, key).Int()
		if attempts >= LoginMaxAttempts {
			database.Redis.Set(ctx, cooldownKey, "1", LoginCooldown)
			database.Redis.Del(ctx, key)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("Trop de tentatives échouées. Compte bloqué pendant %d minutes", int(LoginCooldown.Minutes())),
				"retry_after": int(LoginCooldown.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusUnauthorized {
			database.Redis.Incr(ctx, key)
			database.Redis.Expire(ctx, key, LoginCooldown)
		} else if c.Writer.Status() == http.StatusOK {
			database.Redis.Del(ctx, key)
			database.Redis.Del(ctx, cooldownKey)
		}
	}
}

// RegisterRateLimit limite les créations de compte par IP.
func RegisterRateLimit() gin.HandlerFunc {
	return countingLimit("register", RegisterMaxAttempts, RegisterCooldown)
}

// CheckoutRateLimit borne les ouvertures de session de paiement par
// utilisateur : chaque checkout crée une ligne locale et un appel
// prestataire.
func CheckoutRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "checkout_rate:" + userID

		count, _ := database.Redis.Incr(ctx, key).Result()
		if count == 1 {
			database.Redis.Expire(ctx, key, CheckoutWindow)
		}
		if count > CheckoutMaxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Trop de tentatives de paiement, patientez une minute"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIRateLimit : limite générale par IP.
func APIRateLimit() gin.HandlerFunc {
	return countingLimit("api", APIMaxRequests, APIWindow)
}

func countingLimit(name string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := fmt.Sprintf("%s_rate:%s", name, c.ClientIP())

		count, _ := database.Redis.Incr(ctx, key).Result()
		if count == 1 {
			database.Redis.Expire(ctx, key, window)
		}
		if count > int64(max) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Trop de requêtes, réessayez plus tard"})
			c.Abort()
			return
		}
		c.Next()
	}
}
