package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type StripeConfig struct {
	SecretKey     string
	PublicKey     string
	WebhookSecret string
	Currency      string
}

type DeliveryConfig struct {
	FreeThreshold      decimal.Decimal
	StandardPercentage decimal.Decimal
}

// ReconcileConfig borne la recherche de commande côté webhook
type ReconcileConfig struct {
	Attempts int
	Delay    time.Duration
}

type PostgresConfig struct {
	Host    string
	Port    string
	User    string
	Pass    string
	Name    string
	SSLMode string
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Pass, p.Name, p.SSLMode,
	)
}

type ScyllaConfig struct {
	Hosts            []string
	SSLEnabled       bool
	CACertPath       string
	ProductsKeyspace string
	ProductsRole     string
	ProductsPassword string
	UsersKeyspace    string
	UsersRole        string
	UsersPassword    string
}

type RedisConfig struct {
	Host     string
	Password string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled indique si l'archivage des reçus est configuré
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

type Config struct {
	Port          string
	BaseURL       string
	SessionSecret string
	JWTSecret     string
	Stripe        StripeConfig
	Delivery      DeliveryConfig
	Reconcile     ReconcileConfig
	Postgres      PostgresConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	SMTP          SMTPConfig
	MinIO         MinIOConfig
}

// Load charge le .env (s'il existe) puis construit la configuration
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv()
}

// FromEnv lit uniquement les variables d'environnement
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		BaseURL:       strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			PublicKey:     os.Getenv("STRIPE_PUBLIC_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "eur")),
		},
		Postgres: PostgresConfig{
			Host:    getEnv("DB_HOST", "localhost"),
			Port:    getEnv("DB_PORT", "5432"),
			User:    os.Getenv("DB_USER"),
			Pass:    os.Getenv("DB_PASSWORD"),
			Name:    os.Getenv("DB_NAME"),
			SSLMode: getEnv("DB_SSLMODE", "disable"),
		},
		Scylla: ScyllaConfig{
			Hosts:            splitList(os.Getenv("SCYLLA_HOSTS")),
			SSLEnabled:       strings.ToLower(os.Getenv("SCYLLA_SSL_ENABLED")) == "true",
			CACertPath:       os.Getenv("SCYLLA_SSL_CA_PATH"),
			ProductsKeyspace: os.Getenv("SCYLLA_KS_PRODUCTS_KEYSPACE"),
			ProductsRole:     os.Getenv("SCYLLA_KS_PRODUCTS_ROLE"),
			ProductsPassword: os.Getenv("SCYLLA_KS_PRODUCTS_PASSWORD"),
			UsersKeyspace:    os.Getenv("SCYLLA_KS_USERS_KEYSPACE"),
			UsersRole:        os.Getenv("SCYLLA_KS_USERS_ROLE"),
			UsersPassword:    os.Getenv("SCYLLA_KS_USERS_PASSWORD"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@boutique.local"),
		},
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    os.Getenv("MINIO_BUCKET"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		},
	}

	var err error
	if cfg.SMTP.Port, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("SMTP_PORT invalide: %w", err)
	}
	if cfg.Delivery.FreeThreshold, err = decimal.NewFromString(getEnv("FREE_DELIVERY_THRESHOLD", "50")); err != nil {
		return nil, fmt.Errorf("FREE_DELIVERY_THRESHOLD invalide: %w", err)
	}
	if cfg.Delivery.StandardPercentage, err = decimal.NewFromString(getEnv("STANDARD_DELIVERY_PERCENTAGE", "10")); err != nil {
		return nil, fmt.Errorf("STANDARD_DELIVERY_PERCENTAGE invalide: %w", err)
	}
	if cfg.Reconcile.Attempts, err = strconv.Atoi(getEnv("RECONCILE_ATTEMPTS", "5")); err != nil || cfg.Reconcile.Attempts < 1 {
		return nil, fmt.Errorf("RECONCILE_ATTEMPTS invalide: %q", os.Getenv("RECONCILE_ATTEMPTS"))
	}
	if cfg.Reconcile.Delay, err = time.ParseDuration(getEnv("RECONCILE_DELAY", "1s")); err != nil {
		return nil, fmt.Errorf("RECONCILE_DELAY invalide: %w", err)
	}

	// Obligatoires : sans elles ni paiement ni webhook ni panier
	missing := []string{}
	if cfg.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if cfg.Stripe.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("variables manquantes: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
