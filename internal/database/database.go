package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"storefront_back_end/internal/config"

	"github.com/gocql/gocql"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

type ScyllaManager struct {
	sessions map[string]*gocql.Session // keyspace → session
	configs  map[string]ScyllaKeyspaceConfig
	mu       sync.Mutex
}

// Connections regroupe les clients ouverts au démarrage
type Connections struct {
	Scylla   *ScyllaManager
	Products *gocql.Session
	Users    *gocql.Session
	Redis    *redis.Client
	Postgres *sql.DB
	MinIO    *minio.Client // nil si l'archivage des reçus n'est pas configuré
}

// ConnectDatabases ouvre Scylla (catalogue + profils), Redis, Postgres et MinIO
func ConnectDatabases(cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conns := &Connections{Scylla: NewScyllaManager(ScyllaConfigs(cfg.Scylla))}

	var err error
	if conns.Products, err = conns.Scylla.GetSession(cfg.Scylla.ProductsKeyspace); err != nil {
		return nil, fmt.Errorf("scylla produits: %w", err)
	}
	if conns.Users, err = conns.Scylla.GetSession(cfg.Scylla.UsersKeyspace); err != nil {
		conns.Close()
		return nil, fmt.Errorf("scylla utilisateurs: %w", err)
	}

	if conns.Redis, err = connectRedis(ctx, cfg.Redis); err != nil {
		conns.Close()
		return nil, err
	}

	if conns.Postgres, err = connectPostgres(ctx, cfg.Postgres); err != nil {
		conns.Close()
		return nil, err
	}

	if cfg.MinIO.Enabled() {
		if conns.MinIO, err = connectMinIO(cfg.MinIO); err != nil {
			conns.Close()
			return nil, err
		}
	} else {
		log.Println("ℹ️ MinIO non configuré, reçus non archivés")
	}

	log.Println("✅ Toutes les bases de données sont connectées")
	return conns, nil
}

// Close ferme tout ce qui a été ouvert
func (c *Connections) Close() {
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.Scylla != nil {
		c.Scylla.Close()
	}
}

// =============================================
// SCYLLA DB (Multi-Keyspaces avec SSL & Rôles)
// =============================================

func NewScyllaManager(configs map[string]ScyllaKeyspaceConfig) *ScyllaManager {
	return &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  configs,
	}
}

// ScyllaConfigs construit une configuration par keyspace (produits, utilisateurs)
func ScyllaConfigs(cfg config.ScyllaConfig) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)
	base := ScyllaKeyspaceConfig{
		Hosts:       cfg.Hosts,
		SSLEnabled:  cfg.SSLEnabled,
		CACertPath:  cfg.CACertPath,
		Timeout:     5 * time.Second,
		NumConns:    20,
		Consistency: gocql.Quorum,
	}

	if ks := cfg.ProductsKeyspace; ks != "" {
		c := base
		c.Keyspace, c.Username, c.Password = ks, cfg.ProductsRole, cfg.ProductsPassword
		configs[ks] = c
	}
	if ks := cfg.UsersKeyspace; ks != "" {
		c := base
		c.Keyspace, c.Username, c.Password = ks, cfg.UsersRole, cfg.UsersPassword
		configs[ks] = c
	}
	return configs
}

func createScyllaCluster(config ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	cluster.Authenticator = gocql.PasswordAuthenticator{
		Username: config.Username,
		Password: config.Password,
	}

	if config.SSLEnabled && config.CACertPath != "" {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CACertPath,
			EnableHostVerification: true,
		}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// GetSession retourne une session pour un keyspace donné
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if err := session.Query("SELECT now() FROM system.local").Exec(); err == nil {
			return session, nil
		}
		session.Close()
	}

	session, err := createScyllaCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %v", keyspace, err)
	}

	sm.sessions[keyspace] = session
	log.Printf("✅ Nouvelle session ScyllaDB pour keyspace '%s' (utilisateur: %s)",
		keyspace, config.Username)
	return session, nil
}

// Close ferme toutes les sessions ScyllaDB
func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		log.Printf("🔌 Session ScyllaDB fermée pour keyspace '%s'", keyspace)
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host,
		Password: cfg.Password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	log.Println("✅ Connecté à Redis")
	return client, nil
}

// =============================================
// POSTGRES (commandes)
// =============================================
func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("ouverture Postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connexion Postgres: %w", err)
	}
	log.Printf("✅ Connecté à Postgres (%s)", cfg.Name)
	return db, nil
}

// =============================================
// MINIO (reçus)
// =============================================
func connectMinIO(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connexion MinIO: %w", err)
	}
	log.Println("✅ Connecté à MinIO :", cfg.Endpoint)
	return client, nil
}
