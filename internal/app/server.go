// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mmss/internal/clients"
	"mmss/internal/collections"
	"mmss/internal/config"
	"mmss/internal/exchange"
	"mmss/internal/httpapi"
	"mmss/internal/loan"
	"mmss/internal/storage"
	"mmss/internal/telemetry"
	"mmss/internal/tour"
	"mmss/internal/visitors"
)

// Runtime is what every binary sets up before it serves: a logger installed
// as the slog default, the metrics registry and the global tracer and meter
// providers.
type Runtime struct {
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	Shutdown func(context.Context) error
}

// Start builds the logger and metrics and installs tracing for cfg.
func Start(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger, err := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	metrics := telemetry.NewMetrics()
	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, metrics)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	return &Runtime{Logger: logger, Metrics: metrics, Shutdown: shutdown}, nil
}

// OpenStores opens and migrates the configured database. The memory driver
// opens nothing. The returned func closes whatever was opened.
func OpenStores(ctx context.Context, cfg config.Database) (Stores, func() error, error) {
	if cfg.Driver == storage.DriverMemory {
		return NewStores(nil), func() error { return nil }, nil
	}
	db, err := storage.Open(ctx, cfg.Driver, cfg.URL)
	if err != nil {
		return Stores{}, nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return Stores{}, nil, err
	}
	return NewStores(db), db.Close, nil
}

// Pricing turns configured per-person prices into a tour pricing policy.
func Pricing(p config.Prices) tour.ShiftPricing {
	return tour.ShiftPricing{
		tour.ShiftMorning:   exchange.Money(p.Morning),
		tour.ShiftAfternoon: exchange.Money(p.Afternoon),
		tour.ShiftEvening:   exchange.Money(p.Evening),
	}
}

// ServicesFor wires the services the way cfg describes. In remote directory
// mode loans and tours consult the directory services over HTTP.
func ServicesFor(ctx context.Context, cfg *config.Config, stores Stores, logger *slog.Logger, metrics *telemetry.Metrics) (*Services, error) {
	opts := Options{
		LoanPeriod: cfg.Policy.LoanPeriodDays,
		Capacity:   cfg.Policy.ShiftCapacity,
		Pricing:    Pricing(cfg.Policy.Prices),
		Logger:     logger,
		Metrics:    metrics,
	}
	if cfg.Directory.Mode == config.DirectoryRemote {
		opts.Artefacts = clients.NewCollectionsClient(cfg.Directory.CollectionsURL, clients.WithLogger(logger))
		opts.People = clients.NewVisitorsClient(cfg.Directory.VisitorsURL, clients.WithLogger(logger))
	}
	return NewServices(ctx, stores, opts)
}

// Router mounts the exchange services. Directories are mounted too unless
// they live elsewhere.
func Router(s *Services, metrics *telemetry.Metrics, withDirectories bool) chi.Router {
	r := httpapi.NewRouter()
	r.Mount("/loans", loan.NewHandler(s.Loans).Routes())
	r.Mount("/tours", tour.NewHandler(s.Tours).Routes())
	if withDirectories {
		r.Mount("/artefacts", collections.NewHandler(s.Collections).Routes())
		r.Mount("/visitors", visitors.NewHandler(s.Visitors).Routes())
	}
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
