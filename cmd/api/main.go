package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	memaccountrepo "github.com/actilink/actilink-api/internal/adapters/memory/accountrepo"
	memactivityrepo "github.com/actilink/actilink-api/internal/adapters/memory/activityrepo"
	memidempotency "github.com/actilink/actilink-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/actilink/actilink-api/internal/adapters/memory/profilerepo"
	postgres "github.com/actilink/actilink-api/internal/adapters/postgres"
	pgaccountrepo "github.com/actilink/actilink-api/internal/adapters/postgres/accountrepo"
	pgactivityrepo "github.com/actilink/actilink-api/internal/adapters/postgres/activityrepo"
	pgidempotency "github.com/actilink/actilink-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/actilink/actilink-api/internal/adapters/postgres/profilerepo"
	"github.com/actilink/actilink-api/internal/adapters/rabbitmq"
	redisadapter "github.com/actilink/actilink-api/internal/adapters/redis"
	"github.com/actilink/actilink-api/internal/app/accounts"
	"github.com/actilink/actilink-api/internal/app/activities"
	"github.com/actilink/actilink-api/internal/app/profiles"
	"github.com/actilink/actilink-api/internal/platform/auth/tokens"
	platformclock "github.com/actilink/actilink-api/internal/platform/clock"
	"github.com/actilink/actilink-api/internal/platform/config"
	"github.com/actilink/actilink-api/internal/platform/logger"
	accountrepoport "github.com/actilink/actilink-api/internal/ports/out/accountrepo"
	activityrepoport "github.com/actilink/actilink-api/internal/ports/out/activityrepo"
	"github.com/actilink/actilink-api/internal/ports/out/eventpub"
	idempotencyport "github.com/actilink/actilink-api/internal/ports/out/idempotency"
	profilerepoport "github.com/actilink/actilink-api/internal/ports/out/profilerepo"
)

// devTokenSecret signs session tokens in AUTH_MODE=dev when JWT_SECRET is unset.
const devTokenSecret = "actilink-dev-only-secret"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet; use the default.
		l := logger.Init("info", "console")
		l.Fatal().Err(err).Msg("invalid config")
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth configuration:
	// - Production: require JWT_SECRET and enforce bearer auth
	// - Local dev: AUTH_MODE=dev accepts X-Debug-Subject instead of a token
	tokenCfg := cfg.Token
	if tokenCfg.Secret == "" && cfg.AuthMode == config.AuthModeDev {
		log.Warn().Msg("JWT_SECRET unset; signing session tokens with the dev secret")
		tokenCfg.Secret = devTokenSecret
	}
	tm := tokens.New(tokenCfg)
	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case config.AuthModeDev:
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(tm)
	}

	clk := platformclock.NewSystemClock()

	var (
		activityRepo activityrepoport.Repository
		profileRepo  profilerepoport.Repository
		accountRepo  accountrepoport.Repository
		idemStore    idempotencyport.Store
	)
	switch cfg.StorageBackend {
	case config.StoragePostgres:
		if cfg.AutoMigrate {
			if err := postgres.MigrateUp(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("migrate database")
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()

		activityRepo = pgactivityrepo.NewRepo(pool)
		profileRepo = pgprofilerepo.NewRepo(pool)
		accountRepo = pgaccountrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, cfg.IdempotencyTTL)
	default:
		activityRepo = memactivityrepo.NewRepo()
		profileRepo = memprofilerepo.NewRepo()
		accountRepo = memaccountrepo.NewRepo()
		idemStore = memidempotency.NewStoreWithClock(clk, cfg.IdempotencyTTL)
	}

	var pub eventpub.Publisher = eventpub.Noop{}
	if cfg.RabbitURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer func() { _ = p.Close() }()
		pub = p
	}

	rl := httpapi.RateLimitOptions{Enabled: cfg.RLEnabled, Limit: cfg.RLLimit, Window: cfg.RLWindow}
	if cfg.RLEnabled && cfg.RedisAddr != "" {
		rdb, err := redisadapter.NewClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer func() { _ = rdb.Close() }()
		rl.Limiter = redisadapter.NewLimiter(rdb)
	}

	activitySvc := activities.NewService(activityRepo, pub, clk, log)
	profileSvc := profiles.NewService(profileRepo, clk)
	accountSvc := accounts.NewService(accountRepo, profileSvc, accounts.NewBcryptHasher(bcrypt.DefaultCost), tm, clk, log)

	api := httpapi.NewServer(activitySvc, profileSvc, accountSvc, idemStore)
	accessLog := logger.Component("http")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		RateLimit:      rl,
		Logger:         &accessLog,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("auth_mode", cfg.AuthMode).
			Str("storage", cfg.StorageBackend).
			Bool("events", cfg.RabbitURL != "").
			Bool("redis_rate_limit", rl.Limiter != nil).
			Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

