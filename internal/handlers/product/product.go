package product

import (
	"errors"
	"log"
	"net/http"

	"storefront_back_end/internal/catalog"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	catalog catalog.Lookup
}

func NewHandler(lookup catalog.Lookup) *Handler {
	return &Handler{catalog: lookup}
}

// GET /products/:product_id : prix et tailles, lus via le cache Redis
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("product_id")
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Lecture produit %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produit"})
		return
	}
	c.JSON(http.StatusOK, p)
}
