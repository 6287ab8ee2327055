package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errNoToken = errors.New("token manquant")

type identity struct {
	UserID string
	Email  string
	Name   string
}

func parseBearer(header string, secret []byte) (*identity, error) {
	if header == "" {
		return nil, errNoToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("format Authorization invalide")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("claims invalides")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("user_id manquant")
	}

	id := &identity{UserID: userID}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	return id, nil
}

func setIdentity(c *gin.Context, id *identity) {
	c.Set("user_id", id.UserID)
	c.Set("email", id.Email)
	c.Set("name", id.Name)
}

// OptionalAuth : le checkout anonyme est permis, un token valide rattache le compte
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseBearer(c.GetHeader("Authorization"), secret)
		switch {
		case err == nil:
			setIdentity(c, id)
		case errors.Is(err, errNoToken):
		default:
			log.Printf("⚠️ Token ignoré: %v", err)
		}
		c.Next()
	}
}

func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseBearer(c.GetHeader("Authorization"), secret)
		if err != nil {
			log.Printf("❌ Authentification refusée: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token invalide"})
			c.Abort()
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}
