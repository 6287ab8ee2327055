package bag

import (
	"context"
	"log"
	"time"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const pingInterval = 30 * time.Second

// GET /bag/live : pousse le contenu du panier à chaque modification
func (h *Handler) Live(c *gin.Context) {
	sid := c.GetString(middleware.SessionIDKey)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.carts.Subscribe(ctx, sid)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("❌ Abonnement panier %s: %v", sid, err)
		return
	}
	ch := pubsub.Channel()

	// lecture : seule façon de voir que le client a fermé
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.push(ctx, conn, sid, "connected"); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Payload != cart.EventUpdated && msg.Payload != cart.EventCleared {
				continue
			}
			if err := h.push(ctx, conn, sid, "bag_updated"); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) push(ctx context.Context, conn *websocket.Conn, sid, kind string) error {
	bag, err := h.carts.Load(ctx, sid)
	if err != nil {
		return conn.WriteJSON(gin.H{"type": "error", "error": "Erreur lecture panier"})
	}

	summary, err := pricing.Calculate(ctx, bag.Snapshot(), h.catalog, h.policy)
	if err != nil {
		return conn.WriteJSON(gin.H{"type": "error", "error": err.Error()})
	}
	return conn.WriteJSON(gin.H{"type": kind, "bag": summary})
}
