package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/adoteiftm/adote-backend/internal/config"
	"github.com/adoteiftm/adote-backend/internal/database"
	"github.com/adoteiftm/adote-backend/internal/handlers"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/middleware"
	"github.com/adoteiftm/adote-backend/internal/routes"
	"github.com/adoteiftm/adote-backend/internal/services"
	"github.com/adoteiftm/adote-backend/internal/store"
	"github.com/adoteiftm/adote-backend/pkg/clientip"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

// backends holds every store the server was configured with.
type backends struct {
	users    store.UserStore
	sessions store.SessionStore
	posts    store.PostStore
	primary  store.Pinger

	mongo    *mongo.Client
	postgres *sql.DB
	redis    *redis.Client
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.postgres != nil {
		_ = b.postgres.Close()
	}
	_ = database.DisconnectMongo(b.mongo)
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.IsProduction(), cfg.LogLevel)

	ctx := context.Background()
	if envErr != nil {
		log.Info(ctx, "no .env file found")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	images, err := newImageStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	sessions := services.NewSessionManager(b.sessions, cfg.SessionTimeout, log)
	gate := services.NewAuthGate(b.users, sessions, utils.NewPasswordHasher(utils.DefaultArgon2Params), log)
	hub := services.NewEventHub(b.redis, log)
	posts := services.NewPostService(b.posts, images, hub, log)

	monitor := services.NewStoreMonitor(log)
	monitor.Add(cfg.StoreBackend, b.primary)
	if b.postgres != nil {
		monitor.Add("postgres", store.PingFunc(b.postgres.PingContext))
	}
	if b.redis != nil {
		monitor.Add("redis", store.PingFunc(func(ctx context.Context) error { return b.redis.Ping(ctx).Err() }))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); monitor.Run(ctx, cfg.StorePingInterval) }()
	go func() { defer wg.Done(); hub.Run(ctx) }()
	swept := services.StartSessionSweeper(ctx, sessions, cfg.SessionSweepInterval)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(log, clientip.Resolver{TrustForwarded: cfg.TrustProxy}))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Info(ctx, "production security enabled", "allowed_host", cfg.AllowedHost)
	}

	routes.SetupRoutes(r, handlers.New(gate, posts, hub, log), gate, monitor, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "adote backend listening", "port", cfg.Port, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
		err = shutdownErr
	}

	wg.Wait()
	<-swept
	return err
}

// connect opens the configured backends and ensures their indexes.
// Mongo (or memory) holds posts, and users and sessions unless Postgres or
// Redis take them over.
func connect(ctx context.Context, cfg *config.Config, log logging.Logger) (*backends, error) {
	b := &backends{}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := store.NewMemory()
		b.users, b.sessions, b.posts = mem.Users(), mem.Sessions(), mem.Posts()
		b.primary = mem
		log.Warn(ctx, "using in-memory store; data is lost on restart")
	default:
		client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.mongo = client
		b.primary = store.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
		log.Info(ctx, "connected to MongoDB", "database", db.Name())

		users := store.NewMongoUsers(db)
		sessions := store.NewMongoSessions(db)
		posts := store.NewMongoPosts(db)
		for _, idx := range []interface{ EnsureIndexes(context.Context) error }{users, sessions, posts} {
			if err := idx.EnsureIndexes(ctx); err != nil {
				b.close()
				return nil, err
			}
		}
		migrated, err := posts.MigrateLegacy(ctx)
		if err != nil {
			b.close()
			return nil, err
		}
		if migrated > 0 {
			log.Info(ctx, "legacy posts migrated", "count", migrated)
		}
		b.users, b.sessions, b.posts = users, sessions, posts
	}

	if cfg.PostgresURI != "" {
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			b.close()
			return nil, err
		}
		b.postgres = db
		b.users = store.NewPostgresUsers(db)
		log.Info(ctx, "connected to PostgreSQL; users stored in postgres")
	}

	if cfg.RedisURI != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			b.close()
			return nil, err
		}
		b.redis = rdb
		b.sessions = store.NewRedisSessions(rdb)
		b.users = store.NewCachedUsers(b.users, rdb, store.DefaultUserCacheTTL, log)
		log.Info(ctx, "connected to Redis; sessions and post events use redis")
	}

	return b, nil
}

func newImageStore(ctx context.Context, cfg *config.Config, log logging.Logger) (services.ImageStore, error) {
	if !cfg.CloudinaryEnabled() {
		log.Info(ctx, "cloudinary not configured; images stored inline")
		return services.InlineImages{}, nil
	}
	images, err := services.NewCloudinaryImages(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "cloudinary image store enabled", "folder", cfg.CloudinaryFolder)
	return images, nil
}
