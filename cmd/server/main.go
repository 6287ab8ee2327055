package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/config"
	"storefront_back_end/internal/database"
	"storefront_back_end/internal/handlers/bag"
	"storefront_back_end/internal/handlers/payement"
	"storefront_back_end/internal/handlers/product"
	"storefront_back_end/internal/handlers/user"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/orders"
	"storefront_back_end/internal/payment"
	"storefront_back_end/internal/pricing"
	"storefront_back_end/internal/profiles"
	"storefront_back_end/internal/routes"
	"storefront_back_end/internal/services"
	"storefront_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration invalide: %v", err)
	}

	// annulé sur SIGINT / SIGTERM : coupe aussi les recherches de commande du webhook
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conns, err := database.ConnectDatabases(cfg)
	if err != nil {
		log.Fatalf("❌ Connexion aux bases: %v", err)
	}
	defer conns.Close()

	orderRepo := orders.NewRepository(conns.Postgres)
	if err := orderRepo.Migrate(ctx); err != nil {
		log.Fatalf("❌ Migration commandes: %v", err)
	}

	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey)
	log.Println("✅ Stripe initialisé")

	policy := pricing.DeliveryPolicy{
		FreeThreshold:      cfg.Delivery.FreeThreshold,
		StandardPercentage: cfg.Delivery.StandardPercentage,
	}
	products := catalog.NewCachedLookup(catalog.NewScyllaCatalog(conns.Products), conns.Redis)
	profileStore := profiles.NewScyllaStore(conns.Users)
	carts := cart.NewStore(conns.Redis)

	var receipts utils.ReceiptArchiver
	if conns.MinIO != nil {
		archive := services.NewReceiptArchive(conns.MinIO, cfg.MinIO.Bucket)
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatalf("❌ MinIO: %v", err)
		}
		receipts = archive
	}
	notifier := utils.NewConfirmationMailer(utils.NewSMTPMailer(cfg.SMTP), cfg.BaseURL, receipts)

	engine := checkout.NewEngine(orderRepo, products, profileStore, notifier, policy, checkout.Options{
		Attempts: cfg.Reconcile.Attempts,
		Delay:    cfg.Reconcile.Delay,
		Shutdown: ctx,
	})

	r := gin.Default()
	routes.RegisterRoutes(r, routes.Handlers{
		Bag: bag.NewHandler(carts, products, policy, []string{cfg.BaseURL}),
		Checkout: payement.NewHandler(payement.Deps{
			Engine:   engine,
			Gateway:  gateway,
			Carts:    carts,
			Catalog:  products,
			Policy:   policy,
			Profiles: profileStore,
			Orders:   orderRepo,
			Stripe:   cfg.Stripe,
		}),
		Profile:        user.NewHandler(profileStore, orderRepo),
		Product:        product.NewHandler(products),
		Sessions:       middleware.NewSessionStore(cfg.SessionSecret, strings.HasPrefix(cfg.BaseURL, "https://")),
		Redis:          conns.Redis,
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: []string{cfg.BaseURL},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("🚀 Serveur lancé sur le port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Serveur: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt du serveur...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Arrêt forcé: %v", err)
	}
	log.Println("✅ Serveur arrêté")
}
