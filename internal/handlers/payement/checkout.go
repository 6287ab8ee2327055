package payement

import (
	"errors"
	"log"
	"net/http"

	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/pricing"
	"storefront_back_end/internal/profiles"

	"github.com/gin-gonic/gin"
)

// GET /checkout : crée l'intention de paiement pour le total du panier
func (h *Handler) Start(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.GetString(middleware.SessionIDKey)

	bag, err := h.Carts.Load(ctx, sid)
	if err != nil {
		log.Printf("❌ Lecture panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if bag.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Il n'y a rien dans votre panier pour le moment", "redirect": "/products"})
		return
	}

	summary, err := pricing.Calculate(ctx, bag.Snapshot(), h.Catalog, h.Policy)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "redirect": "/bag"})
		return
	}
	if err != nil {
		log.Printf("❌ Calcul panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur calcul panier"})
		return
	}

	intent, err := h.Gateway.CreateIntent(ctx, summary.ChargeAmount(), h.Stripe.Currency)
	if err != nil {
		log.Printf("❌ Création PaymentIntent: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Paiement indisponible"})
		return
	}

	resp := gin.H{
		"client_secret":     intent.ClientSecret,
		"stripe_public_key": h.Stripe.PublicKey,
		"bag":               summary,
	}
	if userID := c.GetString("user_id"); userID != "" {
		resp["prefill"] = h.prefill(c, userID)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) prefill(c *gin.Context, userID string) orders.ShippingDetails {
	p, err := h.Profiles.Get(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, profiles.ErrNotFound) {
			log.Printf("⚠️ Profil %s illisible: %v", userID, err)
		}
		p = &profiles.Profile{UserID: userID}
	}
	return p.Prefill(c.GetString("name"), c.GetString("email"))
}

type cacheRequest struct {
	ClientSecret string `json:"client_secret" form:"client_secret" binding:"required"`
	Email        string `json:"email" form:"email" binding:"required,email,max=254"`
	SaveInfo     bool   `json:"save_info" form:"save_info"`
}

// POST /checkout/cache_checkout_data : pose le panier, l'utilisateur et l'e-mail sur l'intention
func (h *Handler) CacheCheckoutData(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.GetString(middleware.SessionIDKey)

	var req cacheRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_secret ou e-mail manquant"})
		return
	}

	bag, err := h.Carts.Load(ctx, sid)
	if err != nil {
		log.Printf("❌ Lecture panier %s: %v", sid, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Désolé, votre paiement ne peut pas être traité pour le moment"})
		return
	}

	username := c.GetString("user_id")
	if username == "" {
		username = payment.AnonymousUser
	}
	saveInfo := "false"
	if req.SaveInfo {
		saveInfo = "true"
	}

	pid := payment.IntentIDFromClientSecret(req.ClientSecret)
	err = h.Gateway.ModifyIntent(ctx, pid, map[string]string{
		payment.MetaBag:      bag.Snapshot().Serialize(),
		payment.MetaSaveInfo: saveInfo,
		payment.MetaUsername: username,
		payment.MetaEmail:    req.Email,
	})
	if err != nil {
		log.Printf("❌ Mise à jour PaymentIntent %s: %v", pid, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Désolé, votre paiement ne peut pas être traité pour le moment"})
		return
	}
	c.Status(http.StatusOK)
}

type submitRequest struct {
	orders.ShippingDetails
	ClientSecret string `json:"client_secret" binding:"required"`
	SaveInfo     bool   `json:"save_info"`
}

// POST /checkout : formulaire envoyé après confirmation du paiement côté client
func (h *Handler) Submit(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.GetString(middleware.SessionIDKey)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := checkout.NewValidationError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire invalide, vérifiez vos informations", "fields": verr.Fields})
		return
	}

	bag, err := h.Carts.Load(ctx, sid)
	if err != nil {
		log.Printf("❌ Lecture panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	res, err := h.Engine.Submit(ctx, checkout.Submission{
		Shipping:  req.ShippingDetails,
		Bag:       bag.Snapshot(),
		StripePID: payment.IntentIDFromClientSecret(req.ClientSecret),
		UserID:    c.GetString("user_id"),
		SaveInfo:  req.SaveInfo,
	})
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire invalide, vérifiez vos informations", "fields": verr.Fields})
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "redirect": "/products"})
		return
	case errors.Is(err, checkout.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Un des produits de votre panier n'existe plus, contactez-nous pour de l'aide",
			"redirect": "/bag",
		})
		return
	case err != nil:
		log.Printf("❌ Checkout session %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la création de la commande"})
		return
	}

	if err := h.Carts.Clear(ctx, sid); err != nil {
		log.Printf("⚠️ Panier %s non vidé: %v", sid, err)
	}

	number := res.Order.OrderNumber
	c.JSON(http.StatusOK, gin.H{
		"order_number": number,
		"state":        res.State,
		"redirect":     "/checkout/success/" + number,
	})
}

// GET /checkout/success/:order_number
func (h *Handler) Success(c *gin.Context) {
	number := c.Param("order_number")
	order, err := h.Orders.GetByNumber(c.Request.Context(), number)
	if errors.Is(err, orders.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Lecture commande %s: %v", number, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commande"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Commande confirmée ! Un e-mail de confirmation sera envoyé à " + order.Shipping.Email,
		"order":   order,
	})
}
