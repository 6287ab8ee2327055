package bag

import (
	"errors"
	"log"
	"net/http"
	"slices"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/pricing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	carts    *cart.Store
	catalog  catalog.Lookup
	policy   pricing.DeliveryPolicy
	upgrader websocket.Upgrader
}

// allowedOrigins : mêmes origines que la configuration CORS
func NewHandler(carts *cart.Store, lookup catalog.Lookup, policy pricing.DeliveryPolicy, allowedOrigins []string) *Handler {
	return &Handler{
		carts:   carts,
		catalog: lookup,
		policy:  policy,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// clients hors navigateur : pas d'en-tête Origin
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

type itemRequest struct {
	Quantity    int    `json:"quantity" form:"quantity"`
	ProductSize string `json:"product_size" form:"product_size"`
}

// GET /bag : contenu du panier avec totaux et livraison
func (h *Handler) View(c *gin.Context) {
	sid := c.GetString(middleware.SessionIDKey)
	bag, err := h.carts.Load(c.Request.Context(), sid)
	if err != nil {
		log.Printf("❌ Lecture panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	summary, err := pricing.Calculate(c.Request.Context(), bag.Snapshot(), h.catalog, h.policy)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("❌ Calcul panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur calcul panier"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// POST /bag/add/:item_id
func (h *Handler) Add(c *gin.Context) {
	h.mutate(c, func(b *cart.Cart, id string, req itemRequest) error {
		return b.Add(id, req.Quantity, req.ProductSize)
	})
}

// POST /bag/adjust/:item_id : quantité absolue, 0 retire l'article
func (h *Handler) Adjust(c *gin.Context) {
	h.mutate(c, func(b *cart.Cart, id string, req itemRequest) error {
		return b.Set(id, req.Quantity, req.ProductSize)
	})
}

// POST /bag/remove/:item_id : 200 ou 500, appelé en AJAX
func (h *Handler) Remove(c *gin.Context) {
	ctx := c.Request.Context()
	sid := c.GetString(middleware.SessionIDKey)
	id := c.Param("item_id")

	var req itemRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Printf("⚠️ Requête retrait invalide: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	bag, err := h.carts.Load(ctx, sid)
	if err == nil {
		err = bag.Remove(id, req.ProductSize)
	}
	if err == nil {
		err = h.carts.Save(ctx, sid, bag)
	}
	if err != nil {
		log.Printf("❌ Retrait %s du panier %s: %v", id, sid, err)
		c.Status(http.StatusInternalServerError)
		return
	}

	log.Printf("🧹 Article %s retiré du panier %s", id, sid)
	c.Status(http.StatusOK)
}

func (h *Handler) mutate(c *gin.Context, apply func(b *cart.Cart, id string, req itemRequest) error) {
	ctx := c.Request.Context()
	sid := c.GetString(middleware.SessionIDKey)
	id := c.Param("item_id")

	var req itemRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	bag, err := h.carts.Load(ctx, sid)
	if err != nil {
		log.Printf("❌ Lecture panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}

	if err := apply(bag, id, req); err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, cart.ErrShapeMismatch):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, cart.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur panier"})
		}
		return
	}

	if err := h.carts.Save(ctx, sid, bag); err != nil {
		log.Printf("❌ Sauvegarde panier %s: %v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	snap := bag.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"bag":           snap,
		"product_count": snap.ProductCount(),
	})
}
