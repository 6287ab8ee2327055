package payement

import (
	"errors"
	"log"
	"net/http"

	"storefront_back_end/internal/payment"

	"github.com/gin-gonic/gin"
)

const MaxBodyBytes = int64(65536)

// POST /checkout/wh : notifications Stripe.
// 400 si la signature est mauvaise, 500 si la réconciliation échoue (Stripe réessaiera).
func (h *Handler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	event, err := h.Gateway.VerifyAndParse(payload, c.GetHeader("Stripe-Signature"), h.Stripe.WebhookSecret)
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		log.Println("❌ Signature Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
		return
	case err != nil:
		log.Println("❌ Payload Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}
	log.Printf("📥 Événement Stripe reçu : %s (%s)", event.Type, event.ID)

	switch event.Type {
	case payment.EventPaymentSucceeded:
		res, err := h.Engine.HandlePaymentSucceeded(c.Request.Context(), event.Intent)
		if err != nil {
			log.Printf("❌ Webhook %s: %v", event.Type, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook received: " + event.Type + " | ERROR: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":      "Webhook received: " + event.Type + " | SUCCESS: " + string(res.State),
			"order_number": res.Order.OrderNumber,
		})
	case payment.EventPaymentFailed:
		log.Printf("⚠️ Paiement refusé pour %s", event.Intent.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Webhook received: " + event.Type})
	default:
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		c.JSON(http.StatusOK, gin.H{"message": "Unhandled webhook received: " + event.Type})
	}
}
