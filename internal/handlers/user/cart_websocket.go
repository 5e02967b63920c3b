package user

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"decora_back_end/internal/database"
	"decora_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

func cartChannel(userID string) string {
	return "cart_events:" + userID
}

// publishCartUpdate notifie les sessions WebSocket ouvertes de ce
// client qu'une mutation du panier a eu lieu.
func publishCartUpdate(ctx context.Context, userID string, cart []models.CartLineItem) {
	payload, err := json.Marshal(cart)
	if err != nil {
		return
	}
	if err := database.Redis.Publish(ctx, cartChannel(userID), string(payload)).Err(); err != nil {
		log.Printf("⚠️ Publication panier %s échouée : %v", userID, err)
	}
}

// CartWebSocket pousse le panier en temps réel : chaque mutation
// publiée sur le canal Redis de l'utilisateur est relayée sur la socket.
func CartWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()

	pubsub := database.Redis.Subscribe(ctx, cartChannel(userID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	conn.WriteJSON(map[string]interface{}{
		"type":    "connected",
		"message": "Synchronisation panier activée",
	})

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var cart []models.CartLineItem
			if err := json.Unmarshal([]byte(msg.Payload), &cart); err != nil {
				continue
			}
			if err := conn.WriteJSON(map[string]interface{}{
				"type":  "cart_updated",
				"items": cart,
				"count": len(cart),
			}); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-time.After(30 * time.Second):
			// Ping pour garder la connexion active
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
