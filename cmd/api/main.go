// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"mmss/internal/app"
	"mmss/internal/config"
	"mmss/internal/httpapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("MMSS_CONFIG"))
	if err != nil {
		return err
	}
	rt, err := app.Start(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Shutdown(context.Background())

	router, err := newGateway(map[string]string{
		"/api/v1/loans":     cfg.Gateway.ExchangeURL,
		"/api/v1/tours":     cfg.Gateway.ExchangeURL,
		"/api/v1/artefacts": cfg.Directory.CollectionsURL,
		"/api/v1/visitors":  cfg.Directory.VisitorsURL,
	}, rt.Logger)
	if err != nil {
		return err
	}
	return app.Serve(ctx, ":"+cfg.Port, router, rt.Logger)
}

// newGateway proxies each path prefix to its upstream with /api/v1 removed.
func newGateway(routes map[string]string, logger *slog.Logger) (http.Handler, error) {
	router := httpapi.NewRouter()
	for prefix, target := range routes {
		proxy, err := newProxy(target, logger)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", prefix, err)
		}
		router.Mount(prefix, http.StripPrefix("/api/v1", proxy))
		logger.Info("route", "prefix", prefix, "upstream", target)
	}
	return router, nil
}

func newProxy(target string, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	upstream, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream %q is not an absolute URL", target)
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WarnContext(r.Context(), "upstream unavailable", "upstream", upstream.Host, "path", r.URL.Path, "error", err)
		httpapi.WriteJSON(w, http.StatusBadGateway, httpapi.ErrorBody{Error: "unavailable", Message: "upstream unavailable"})
	}
	return proxy, nil
}
