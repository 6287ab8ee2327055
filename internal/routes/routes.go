package routes

import (
	"log"
	"time"

	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/handlers/bag"
	"storefront_back_end/internal/handlers/payement"
	"storefront_back_end/internal/handlers/product"
	"storefront_back_end/internal/handlers/user"
	"storefront_back_end/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Bag      *bag.Handler
	Checkout *payement.Handler
	Profile  *user.Handler
	Product  *product.Handler

	Sessions       sessions.Store
	Redis          *redis.Client
	JWTSecret      []byte
	AllowedOrigins []string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// erreurs de binding avec les noms JSON des champs
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		checkout.RegisterJSONFieldNames(v)
	} else {
		log.Println("⚠️ Validateur gin inattendu, noms de champs non enregistrés")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Webhook Stripe : ni session ni token
	r.POST("/checkout/wh", h.Checkout.Webhook)

	// Catalogue
	r.GET("/products/:product_id", h.Product.Get)

	shop := r.Group("/")
	shop.Use(middleware.CartSession(h.Sessions), middleware.OptionalAuth(h.JWTSecret))

	// Panier
	bagGroup := shop.Group("/bag")
	bagGroup.GET("", h.Bag.View)
	bagGroup.GET("/live", h.Bag.Live)
	mutations := bagGroup.Group("", middleware.CartRateLimit(h.Redis))
	mutations.POST("/add/:item_id", h.Bag.Add)
	mutations.POST("/adjust/:item_id", h.Bag.Adjust)
	mutations.POST("/remove/:item_id", h.Bag.Remove)

	// Checkout
	co := shop.Group("/checkout", middleware.APIRateLimit(h.Redis))
	co.GET("", h.Checkout.Start)
	co.POST("", h.Checkout.Submit)
	co.POST("/cache_checkout_data", h.Checkout.CacheCheckoutData)
	co.GET("/success/:order_number", h.Checkout.Success)

	// Profil
	profile := r.Group("/profile", middleware.AuthRequired(h.JWTSecret))
	profile.GET("", h.Profile.Get)
	profile.PUT("", h.Profile.Update)
	profile.GET("/orders/:order_number", h.Profile.Order)
}
