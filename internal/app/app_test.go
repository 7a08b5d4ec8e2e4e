package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmss/internal/collections"
	"mmss/internal/config"
	"mmss/internal/exchange"
	"mmss/internal/storage"
	"mmss/internal/telemetry"
	"mmss/internal/tour"
	"mmss/internal/visitors"
)

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_ServesTheExchange(t *testing.T) {
	ctx := context.Background()
	metrics := telemetry.NewMetrics()
	services, err := NewServices(ctx, NewStores(nil), Options{Logger: telemetry.Discard(), Metrics: metrics})
	require.NoError(t, err)

	server := httptest.NewServer(Router(services, metrics, true))
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, server.URL+"/visitors", `{"username":"alice","name":"Alice","password":"password1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, server.URL+"/artefacts", `{"name":"Sextant","loanable":true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var artefact collections.Artefact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artefact))

	resp = post(t, server.URL+"/loans", `{"artefact_id":`+jsonInt(artefact.ID)+`,"visitor_username":"alice"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post(t, server.URL+"/loans", `{"artefact_id":`+jsonInt(artefact.ID)+`,"visitor_username":"alice"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mmss_rejections_total{kind="conflict",op="create_loan"} 1`)
}

func TestRouter_WithoutDirectories(t *testing.T) {
	services, err := NewServices(context.Background(), NewStores(nil), Options{Logger: telemetry.Discard()})
	require.NoError(t, err)
	server := httptest.NewServer(Router(services, nil, false))
	t.Cleanup(server.Close)

	for _, path := range []string{"/artefacts", "/visitors", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp, err := http.Get(server.URL + "/tours")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenStores_SQLite(t *testing.T) {
	ctx := context.Background()
	stores, closeStores, err := OpenStores(ctx, config.Database{
		Driver: storage.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "data", "mmss.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { closeStores() })

	services, err := NewServices(ctx, stores, Options{Logger: telemetry.Discard()})
	require.NoError(t, err)
	_, err = services.Visitors.RegisterVisitor(ctx, visitors.Registration{Username: "bob", Name: "Bob", Password: "password1"})
	require.NoError(t, err)

	booked, err := services.Tours.CreateTour(ctx, "bob", exchange.Clock(nil).Today().AddDays(3), 4, tour.ShiftAfternoon)
	require.NoError(t, err)
	assert.Equal(t, exchange.Money(1200), booked.PricePerPerson)
}

func TestOpenStores_Memory(t *testing.T) {
	stores, closeStores, err := OpenStores(context.Background(), config.Database{Driver: storage.DriverMemory})
	require.NoError(t, err)
	assert.NoError(t, closeStores())
	assert.NotNil(t, stores.Loans)
	assert.NotNil(t, stores.Events)
}

func TestServicesFor_RemoteDirectories(t *testing.T) {
	ctx := context.Background()
	directory, err := NewServices(ctx, NewStores(nil), Options{Logger: telemetry.Discard()})
	require.NoError(t, err)
	remote := httptest.NewServer(Router(directory, nil, true))
	t.Cleanup(remote.Close)

	_, err = directory.Visitors.RegisterVisitor(ctx, visitors.Registration{Username: "carol", Name: "Carol", Password: "password1"})
	require.NoError(t, err)
	artefact, err := directory.Collections.AddArtefact(ctx, collections.NewArtefact{Name: "Orrery", Loanable: true})
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Directory.Mode = config.DirectoryRemote
	cfg.Directory.CollectionsURL = remote.URL
	cfg.Directory.VisitorsURL = remote.URL
	cfg.Policy.Prices.Evening = 2000

	exchangeServices, err := ServicesFor(ctx, cfg, NewStores(nil), telemetry.Discard(), nil)
	require.NoError(t, err)

	created, err := exchangeServices.Loans.CreateLoan(ctx, artefact.ID, "carol")
	require.NoError(t, err)
	marked, err := directory.Collections.GetArtefact(ctx, artefact.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.ActiveLoanID)
	assert.Equal(t, created.ID, *marked.ActiveLoanID)

	booked, err := exchangeServices.Tours.CreateTour(ctx, "carol", exchange.Clock(nil).Today(), 2, tour.ShiftEvening)
	require.NoError(t, err)
	assert.Equal(t, exchange.Money(2000), booked.PricePerPerson)

	_, err = exchangeServices.Tours.CreateTour(ctx, "nobody", exchange.Clock(nil).Today(), 2, tour.ShiftEvening)
	assert.ErrorIs(t, err, exchange.ErrNotFound)
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), telemetry.Discard())
	}()
	cancel()
	assert.NoError(t, <-done)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
