package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"laundry/internal/account"
	"laundry/internal/catalog"
	"laundry/internal/config"
	"laundry/internal/contact"
	"laundry/internal/database"
	"laundry/internal/handlers"
	"laundry/internal/logging"
	"laundry/internal/orders"
	"laundry/internal/ratelimit"
	"laundry/internal/security"
	"laundry/internal/store"
	"laundry/internal/uploads"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("mongo unavailable")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	db := client.Database(cfg.DBName)
	log.WithField("db", db.Name()).Info("mongo connected")
	database.EnsureIndexes(db, log)

	clock := security.RealClock{}
	tokens, err := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.JWTIssuer, clock)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}

	accounts, err := account.NewService(
		store.NewMongoUsers(db),
		security.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		clock,
		log,
		account.Options{RefreshTokenTTL: cfg.RefreshTokenTTL},
	)
	if err != nil {
		log.WithError(err).Fatal("account service")
	}

	packages := store.NewMongoPackages(db)
	router := handlers.NewRouter(handlers.Deps{
		Accounts:     accounts,
		Catalog:      catalog.NewService(packages, clock, log),
		Orders:       orders.NewService(store.NewMongoOrders(db), packages, accounts, clock, log),
		Contacts:     contact.NewService(store.NewMongoContacts(db), clock, log),
		Images:       uploads.NewImageStore(cfg.PublicDir),
		Tokens:       tokens,
		LoginLimiter: loginLimiter(ctx, cfg, log),
		Throttle:     ratelimit.NewThrottle(30, 5, 10*time.Minute),
		Cookies: handlers.CookieConfig{
			Secure:     cfg.CookieSecure,
			Domain:     cfg.CookieDomain,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		CORSOrigins: cfg.CORSOrigins,
		PublicDir:   cfg.PublicDir,
		Ping:        database.Ping(client),
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// loginLimiter shares login counters through Redis when it is configured
// and reachable, and keeps them in process otherwise.
func loginLimiter(ctx context.Context, cfg config.Config, log logrus.FieldLogger) ratelimit.Limiter {
	limit, window := cfg.LoginRate.Limit, cfg.LoginRate.Window
	if cfg.Redis.Addr == "" {
		log.Info("login rate limit: in-memory counters")
		return ratelimit.NewMemoryLimiter(limit, window)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("login rate limit: redis unreachable, using in-memory counters")
		_ = rdb.Close()
		return ratelimit.NewMemoryLimiter(limit, window)
	}

	log.WithField("addr", cfg.Redis.Addr).Info("login rate limit: redis counters")
	return ratelimit.NewRedisLimiter(rdb, "laundry:login", limit, window)
}
