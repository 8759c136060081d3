package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orgprofile/internal/company/classification"
	"orgprofile/internal/company/handler"
	"orgprofile/internal/company/hierarchy"
	"orgprofile/internal/company/legacypush"
	companymetrics "orgprofile/internal/company/metrics"
	"orgprofile/internal/company/notify"
	"orgprofile/internal/company/service"
	"orgprofile/internal/company/store/legacy"
	"orgprofile/internal/company/store/primary"
	storesub "orgprofile/internal/company/store/subscription"
	"orgprofile/internal/company/store/subsidiary"
	"orgprofile/internal/company/subscription"
	"orgprofile/internal/features"
	jwttoken "orgprofile/internal/jwt_token"
	"orgprofile/internal/platform/config"
	"orgprofile/internal/platform/httpserver"
	"orgprofile/internal/platform/kafka/producer"
	"orgprofile/internal/platform/logger"
	"orgprofile/internal/platform/metrics"
	"orgprofile/internal/platform/middleware"
	"orgprofile/internal/platform/postgres"
	"orgprofile/internal/platform/redis"
	"orgprofile/migrations"
	"orgprofile/pkg/platform/httputil"
)

// main wires the stores, services and HTTP router, and keeps the server lifecycle small.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	primary    service.PrimaryStore
	legacy     service.LegacyStore
	edges      hierarchy.EdgeStore
	legacySubs subscription.LegacyStore
	current    subscription.CurrentStore
	closers    []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

func openStores(ctx context.Context, cfg config.Database, log *slog.Logger) (*stores, error) {
	if cfg.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			primary:    primary.NewInMemory(),
			legacy:     legacy.NewInMemory(),
			edges:      subsidiary.NewInMemory(),
			legacySubs: storesub.NewLegacyInMemory(),
			current:    storesub.NewCurrentInMemory(),
		}, nil
	}

	opts := postgres.Options{MaxOpenConns: cfg.MaxOpenConns, ConnMaxLifetime: cfg.ConnMaxLifetime}
	db, err := postgres.Open(ctx, cfg.URL, opts)
	if err != nil {
		return nil, err
	}
	s := &stores{closers: []func() error{db.Close}}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db, migrations.FS); err != nil {
			s.Close()
			return nil, err
		}
	}

	legacyDB := db
	if cfg.LegacyURL != cfg.URL {
		var lerr error
		legacyDB, lerr = postgres.Open(ctx, cfg.LegacyURL, opts)
		if lerr != nil {
			s.Close()
			return nil, fmt.Errorf("legacy database: %w", lerr)
		}
		s.closers = append(s.closers, legacyDB.Close)
	}

	s.primary = primary.NewPostgres(db)
	s.legacy = legacy.NewPostgres(legacyDB)
	s.edges = subsidiary.NewPostgres(db)
	s.legacySubs = storesub.NewLegacyPostgres(legacyDB)
	s.current = storesub.NewCurrentPostgres(db)
	return s, nil
}

func openFlags(ctx context.Context, url string, log *slog.Logger) (features.Flags, func() error, error) {
	client, err := redis.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, feature flags are static and off")
		return features.NewStatic(), func() error { return nil }, nil
	}
	return features.NewRedis(client.Client), client.Close, nil
}

func openNotifier(ctx context.Context, cfg config.Kafka, log *slog.Logger) (notify.Notifier, func(), error) {
	if len(cfg.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, company changes are recorded in memory only")
		return notify.NewRecorder(), func() {}, nil
	}
	p, err := producer.New(ctx, cfg.Brokers, producer.WithClientID("orgprofile"))
	if err != nil {
		return nil, nil, err
	}
	if cfg.EnsureTopic {
		if err := p.EnsureTopic(ctx, cfg.Topic, cfg.Partitions, -1); err != nil {
			p.Close()
			return nil, nil, err
		}
	}
	return notify.NewKafka(p, cfg.Topic), p.Close, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	st, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.Close()

	flags, closeFlags, err := openFlags(ctx, cfg.RedisURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeFlags() }()

	notifier, closeNotifier, err := openNotifier(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	tree, err := classification.Load(cfg.Classification)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	subs := subscription.New(st.legacySubs, st.current, flags, subscription.WithLogger(log))
	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(companymetrics.New(reg)),
	}
	if cfg.Legacy.SendUpdates {
		opts = append(opts, service.WithLegacyPush(
			legacypush.NewHTTPClient(cfg.Legacy.AdapterURL, cfg.Legacy.Timeout, legacypush.WithLogger(log)),
		))
	}
	companies := service.New(st.primary, st.legacy, subs, notifier, opts...)
	edges := hierarchy.New(st.edges, companies, hierarchy.WithLogger(log))
	h := handler.New(companies, edges, subs, tree, log)
	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.AccessLog(log, metrics.New(reg)))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		h.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, jwttoken.RoleService, jwttoken.RoleAdmin))
			h.RegisterService(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, jwttoken.RoleAdmin))
			h.RegisterAdmin(r)
		})
	})

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting orgprofile", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
