package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/config"
	"github.com/example/resource-booking/internal/events"
	httptransport "github.com/example/resource-booking/internal/http"
	"github.com/example/resource-booking/internal/persistence/postgres"
	"github.com/example/resource-booking/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	repos, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := closeStorage(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	codeGenerator := func() string { return randomCode(8) }
	now := time.Now

	publisher := events.Fanout{events.NewLogPublisher(logger)}

	reservationService := application.NewReservationServiceWithLogger(
		newReservationRepositoryAdapter(repos.reservations),
		newResourceCatalogAdapter(repos.resources),
		newUserDirectoryAdapter(repos.users),
		nil,
		publisher,
		idGenerator,
		codeGenerator,
		now,
		logger,
	)
	recurringService := application.NewRecurringServiceWithLogger(
		newPatternRepositoryAdapter(repos.patterns),
		reservationService,
		idGenerator,
		now,
		logger,
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Reservations: httptransport.NewReservationHandler(reservationService, logger),
		Recurring:    httptransport.NewRecurringHandler(recurringService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("booking API listening", "addr", server.Addr, "driver", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, cfg config.Config) (storageRepositories, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		sqliteConfig := sqlite.DefaultConfig(cfg.SQLiteDSN)
		sqliteConfig.BusyTimeout = cfg.SQLiteBusyTimeout

		pool, err := sqlite.Open(sqliteConfig)
		if err != nil {
			return storageRepositories{}, nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			closeErr := pool.Close()
			return storageRepositories{}, nil, errors.Join(err, closeErr)
		}

		return storageRepositories{
			reservations: sqlite.NewReservationRepository(pool),
			resources:    sqlite.NewResourceRepository(pool),
			users:        sqlite.NewUserRepository(pool),
			patterns:     sqlite.NewPatternRepository(pool),
		}, pool.Close, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return storageRepositories{}, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return storageRepositories{}, nil, err
		}

		closePool := func() error {
			pool.Close()
			return nil
		}
		return storageRepositories{
			reservations: postgres.NewReservationRepository(pool),
			resources:    postgres.NewResourceRepository(pool),
			users:        postgres.NewUserRepository(pool),
			patterns:     postgres.NewPatternRepository(pool),
		}, closePool, nil

	default:
		return storageRepositories{}, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// randomCode returns an uppercase hex confirmation code of 2*bytes characters.
func randomCode(bytes int) string {
	if bytes <= 0 {
		bytes = 8
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return strings.ToUpper(fmt.Sprintf("%X", time.Now().UnixNano()))
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
