package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	CartMaxRequests = 20 // modifications du panier par minute
	APIMaxRequests  = 100
	RateWindow      = 1 * time.Minute
)

// limit compte les requêtes d'une clé sur la fenêtre ; false si la limite est atteinte.
// Redis indisponible : la requête passe.
func limit(c *gin.Context, client *redis.Client, key string, max int) (remaining int, ok bool) {
	ctx := c.Request.Context()

	requests, err := client.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Printf("⚠️ Lecture compteur %s: %v", key, err)
	}
	if requests >= max {
		return 0, false
	}

	pipe := client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, RateWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("⚠️ Mise à jour compteur %s: %v", key, err)
	}

	return max - requests - 1, true
}

// CartRateLimit limite les modifications du panier par session (anti-spam)
func CartRateLimit(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := c.GetString(SessionIDKey)
		if sid == "" {
			c.Next()
			return
		}

		if _, ok := limit(c, client, "cart_changes:"+sid, CartMaxRequests); !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de modifications du panier. Ralentissez un peu",
				"retry_after": int(RateWindow.Seconds()),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIRateLimit limite le nombre de requêtes par IP (checkout)
func APIRateLimit(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, ok := limit(c, client, "api_requests:"+c.ClientIP(), APIMaxRequests)
		if !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans 1 minute",
				"retry_after": int(RateWindow.Seconds()),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", APIMaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Next()
	}
}
