package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-platform/internal/accounts"
	"voice-platform/internal/audit"
	"voice-platform/internal/auth"
	"voice-platform/internal/calls"
	"voice-platform/internal/capacity"
	"voice-platform/internal/config"
	"voice-platform/internal/events"
	"voice-platform/internal/httpapi"
	"voice-platform/internal/lifecycle"
	"voice-platform/internal/phone"
	"voice-platform/internal/pricing"
	"voice-platform/internal/reporting"
	"voice-platform/internal/telemetry"
	"voice-platform/internal/telephony"
	"voice-platform/pkg/logger"
	"voice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const serviceName = "voice-platform"

// capacitySlotTTL bounds how long a leaked active-call slot can outlive its call.
const capacitySlotTTL = time.Hour

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Env:     cfg.App.Env,
		Service: serviceName,
		Version: cfg.App.Version,
		Region:  cfg.App.Region,
	})
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.Setup(rootCtx, cfg.Telemetry, serviceName, cfg.App.Version)
	if err != nil {
		log.Error("telemetry init failed", "err", err)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Storage
	var (
		callStore   calls.Store
		accountRepo accounts.Repository
		auditRepo   audit.Repository
		db          *sql.DB
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		pgCalls := calls.NewPostgresStore(db)
		pgAccounts := accounts.NewPostgresRepo(db)
		pgAudit := audit.NewPostgresRepo(db)
		for name, ensure := range map[string]func(context.Context) error{
			"calls":    pgCalls.EnsureSchema,
			"accounts": pgAccounts.EnsureSchema,
			"audit":    pgAudit.EnsureSchema,
		} {
			if err := ensure(rootCtx); err != nil {
				log.Error("schema init failed", "schema", name, "err", err)
				os.Exit(1)
			}
		}
		callStore, accountRepo, auditRepo = pgCalls, pgAccounts, pgAudit
	default:
		callStore, accountRepo, auditRepo = calls.NewMemoryStore(), accounts.NewMemoryRepo(), audit.NewMemoryRepo()
	}
	log.Info("store ready", "driver", cfg.Store.Driver)

	// Call service dependencies
	rates := pricing.NewRateTable(cfg.Calls.LocalRate, cfg.Calls.RegionalRate, cfg.Calls.InternationalRate, cfg.Calls.RegionalCountries)
	pricer := pricing.NewService(phone.DefaultResolver(), rates)

	opts := []calls.Option{calls.WithPaging(cfg.Calls.DefaultPageSize, cfg.Calls.MaxPageSize)}

	var rdb *redis.Client
	if cfg.Calls.MaxActivePerAccount > 0 {
		if cfg.RedisEnabled() {
			rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
			if err != nil {
				log.Error("redis init failed", "err", err)
				os.Exit(1)
			}
			defer rdb.Close()
			opts = append(opts, calls.WithLimiter(capacity.NewRedisLimiter(rdb, cfg.Calls.MaxActivePerAccount, capacitySlotTTL)))
		} else {
			opts = append(opts, calls.WithLimiter(capacity.NewMemoryLimiter(cfg.Calls.MaxActivePerAccount)))
		}
		log.Info("active call cap enabled", "limit", cfg.Calls.MaxActivePerAccount, "redis", cfg.RedisEnabled())
	}

	var publisher interface {
		calls.Publisher
		Close() error
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.StatusTopic, cfg.Kafka.ClientID)
		if err != nil {
			log.Error("kafka init failed", "err", err)
			os.Exit(1)
		}
		publisher = kp
	} else {
		publisher = events.NewLogPublisher(log)
	}
	opts = append(opts, calls.WithPublisher(publisher))

	callService := calls.NewService(callStore, pricer, opts...)

	// Lifecycle
	var (
		dialer   telephony.Dialer
		callback *telephony.CallbackDialer
	)
	switch cfg.Calls.Dialer {
	case "callback":
		callback = telephony.NewCallbackDialer(0)
		dialer = callback
	default:
		sim, err := telephony.NewSimulator(telephony.SimulatorConfig{
			RingDelay:     cfg.Calls.RingDelay,
			AnswerDelay:   cfg.Calls.AnswerDelay,
			CompleteDelay: cfg.Calls.CompleteDelay,
			MinDuration:   cfg.Calls.SimMinDuration,
			MaxDuration:   cfg.Calls.SimMaxDuration,
		})
		if err != nil {
			log.Error("simulator init failed", "err", err)
			os.Exit(1)
		}
		dialer = sim
	}
	scheduler := lifecycle.NewScheduler(callService, dialer)
	callService.SetLauncher(scheduler)
	log.Info("lifecycle ready", "dialer", dialer.Name())

	h := httpapi.Handlers{
		Accounts:  accounts.NewService(accountRepo, authManager),
		Calls:     callService,
		Reporting: reporting.NewService(callStore),
		Audit:     audit.NewService(auditRepo),
		Version:   cfg.App.Version,
		Region:    cfg.App.Region,
	}
	h.Ready = func(ctx context.Context) error {
		if db != nil {
			if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
				return err
			}
		}
		if rdb != nil {
			return utils.RedisHealthCheck(ctx, rdb, 2*time.Second)
		}
		return nil
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager), telephony.StatusCallbackHandler{Dialer: callback})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if err := scheduler.Close(shutdownCtx); err != nil {
		log.Error("lifecycle shutdown failed", "err", err, "active", scheduler.Active())
	}
	if err := publisher.Close(); err != nil {
		log.Error("publisher close failed", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("telemetry shutdown failed", "err", err)
	}
}
