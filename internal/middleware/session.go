package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	SessionName  = "storefront_session"
	SessionIDKey = "session_id"
)

// NewSessionStore : cookie signé, valable 30 jours comme le panier
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// CartSession attribue un identifiant de session stable au navigateur.
// Le panier est rangé sous cet identifiant.
func CartSession(store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := store.Get(c.Request, SessionName)
		if err != nil {
			// cookie illisible (secret changé) : on repart d'une nouvelle session
			log.Printf("⚠️ Session invalide, nouvelle session: %v", err)
		}

		sid, _ := session.Values[SessionIDKey].(string)
		if sid == "" {
			sid = uuid.NewString()
			session.Values[SessionIDKey] = sid
			if err := session.Save(c.Request, c.Writer); err != nil {
				log.Printf("❌ Sauvegarde session: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Session indisponible"})
				c.Abort()
				return
			}
		}

		c.Set(SessionIDKey, sid)
		c.Next()
	}
}
