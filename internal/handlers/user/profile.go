package user

import (
	"context"
	"errors"
	"log"
	"net/http"

	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/profiles"

	"github.com/gin-gonic/gin"
)

// OrderHistory : commandes rattachées à un profil
type OrderHistory interface {
	ListByProfile(ctx context.Context, profileID string) ([]orders.Order, error)
	GetByNumber(ctx context.Context, number string) (*orders.Order, error)
}

type Handler struct {
	profiles profiles.Store
	orders   OrderHistory
}

func NewHandler(store profiles.Store, history OrderHistory) *Handler {
	return &Handler{profiles: store, orders: history}
}

func (h *Handler) load(c *gin.Context, userID string) (*profiles.Profile, bool) {
	p, err := h.profiles.Get(c.Request.Context(), userID)
	if errors.Is(err, profiles.ErrNotFound) {
		return &profiles.Profile{UserID: userID}, true
	}
	if err != nil {
		log.Printf("❌ Lecture profil %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture profil"})
		return nil, false
	}
	return p, true
}

// GET /profile : adresse par défaut et historique des commandes
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString("user_id")
	p, ok := h.load(c, userID)
	if !ok {
		return
	}

	list, err := h.orders.ListByProfile(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Commandes du profil %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": p, "orders": list})
}

type updateRequest struct {
	DefaultPhoneNumber    string `json:"default_phone_number" binding:"max=20"`
	DefaultStreetAddress1 string `json:"default_street_address1" binding:"max=80"`
	DefaultStreetAddress2 string `json:"default_street_address2" binding:"max=80"`
	DefaultTownOrCity     string `json:"default_town_or_city" binding:"max=40"`
	DefaultCounty         string `json:"default_county" binding:"max=80"`
	DefaultPostcode       string `json:"default_postcode" binding:"max=20"`
	DefaultCountry        string `json:"default_country" binding:"max=40"`
}

// PUT /profile : mise à jour des valeurs par défaut
func (h *Handler) Update(c *gin.Context) {
	userID := c.GetString("user_id")

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La mise à jour a échoué, vérifiez le formulaire", "details": err.Error()})
		return
	}

	p, ok := h.load(c, userID)
	if !ok {
		return
	}
	p.ApplyShipping(orders.ShippingDetails{
		PhoneNumber:    req.DefaultPhoneNumber,
		StreetAddress1: req.DefaultStreetAddress1,
		StreetAddress2: req.DefaultStreetAddress2,
		TownOrCity:     req.DefaultTownOrCity,
		County:         req.DefaultCounty,
		Postcode:       req.DefaultPostcode,
		Country:        req.DefaultCountry,
	})

	if err := h.profiles.Save(c.Request.Context(), p); err != nil {
		log.Printf("❌ Sauvegarde profil %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde profil"})
		return
	}
	log.Printf("✅ Profil %s mis à jour", userID)
	c.JSON(http.StatusOK, gin.H{"message": "Profil mis à jour", "profile": p})
}

// GET /profile/orders/:order_number : confirmation passée, réservée au propriétaire
func (h *Handler) Order(c *gin.Context) {
	userID := c.GetString("user_id")
	number := c.Param("order_number")

	order, err := h.orders.GetByNumber(c.Request.Context(), number)
	if err != nil && !errors.Is(err, orders.ErrNotFound) {
		log.Printf("❌ Lecture commande %s: %v", number, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		return
	}
	if order == nil || order.ProfileID == nil || *order.ProfileID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Ceci est une confirmation passée pour la commande " + number + ". Un e-mail de confirmation a été envoyé le jour de la commande.",
		"order":   order,
	})
}
