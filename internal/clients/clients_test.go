package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"mmss/internal/collections"
	"mmss/internal/exchange"
	"mmss/internal/loan"
	"mmss/internal/telemetry"
	"mmss/internal/visitors"
)

type directories struct {
	server      *httptest.Server
	collections collections.Service
	visitors    visitors.Service
}

func newDirectories(t *testing.T) *directories {
	t.Helper()
	logger := telemetry.Discard()
	d := &directories{
		collections: collections.NewService(collections.NewMemoryStore(), nil, collections.WithLogger(logger)),
		visitors: visitors.NewService(visitors.NewMemoryStore(), nil,
			visitors.WithLogger(logger),
			visitors.WithRateLimiter(rate.NewLimiter(rate.Inf, 0)),
		),
	}
	r := chi.NewRouter()
	r.Mount("/artefacts", collections.NewHandler(d.collections).Routes())
	r.Mount("/visitors", visitors.NewHandler(d.visitors).Routes())
	d.server = httptest.NewServer(r)
	t.Cleanup(d.server.Close)
	return d
}

func TestCollectionsClient(t *testing.T) {
	ctx := context.Background()
	d := newDirectories(t)
	client := NewCollectionsClient(d.server.URL+"/", WithLogger(telemetry.Discard()))

	added, err := d.collections.AddArtefact(ctx, collections.NewArtefact{Name: "Astrolabe", Loanable: true, LoanFee: 2500})
	require.NoError(t, err)

	got, err := client.GetArtefact(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Astrolabe", got.Name)
	assert.Equal(t, exchange.Money(2500), got.LoanFee)
	assert.Nil(t, got.ActiveLoanID)

	loanID := 3
	require.NoError(t, client.SetActiveLoan(ctx, added.ID, &loanID))
	got, err = client.GetArtefact(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ActiveLoanID)
	assert.Equal(t, 3, *got.ActiveLoanID)

	other := 4
	err = client.SetActiveLoan(ctx, added.ID, &other)
	assert.ErrorIs(t, err, exchange.ErrConflict)

	require.NoError(t, client.SetActiveLoan(ctx, added.ID, nil))

	_, err = client.GetArtefact(ctx, 404)
	assert.ErrorIs(t, err, exchange.ErrNotFound)
	var typed *exchange.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "artefact", typed.Entity)
	assert.Equal(t, "404", typed.ID)
}

func TestVisitorsClient(t *testing.T) {
	ctx := context.Background()
	d := newDirectories(t)
	client := NewVisitorsClient(d.server.URL)

	_, err := d.visitors.RegisterVisitor(ctx, visitors.Registration{Username: "ada", Name: "Ada", Password: "difference"})
	require.NoError(t, err)

	got, err := client.GetVisitor(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	_, err = client.GetVisitor(ctx, "nobody")
	assert.ErrorIs(t, err, exchange.ErrNotFound)
}

func TestClient_BreakerIgnoresDomainErrors(t *testing.T) {
	ctx := context.Background()
	d := newDirectories(t)
	client := NewVisitorsClient(d.server.URL, WithBreaker(gobreaker.Settings{
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 },
	}))

	for i := 0; i < 5; i++ {
		_, err := client.GetVisitor(ctx, "nobody")
		assert.ErrorIs(t, err, exchange.ErrNotFound)
	}
}

func TestClient_BreakerOpensOnServerFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewCollectionsClient(server.URL,
		WithLogger(telemetry.Discard()),
		WithHTTPClient(&http.Client{Timeout: time.Second}),
		WithBreaker(gobreaker.Settings{
			Timeout:     time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 3 },
		}),
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.GetArtefact(ctx, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := client.GetArtefact(ctx, 1)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load(), "an open breaker does not reach the server")
}

func TestLoanService_OverRemoteDirectories(t *testing.T) {
	ctx := context.Background()
	d := newDirectories(t)

	_, err := d.visitors.RegisterVisitor(ctx, visitors.Registration{Username: "alice", Name: "Alice", Password: "password1"})
	require.NoError(t, err)
	artefact, err := d.collections.AddArtefact(ctx, collections.NewArtefact{Name: "Globe", Loanable: true})
	require.NoError(t, err)

	loans := loan.NewService(loan.NewMemoryStore(),
		NewCollectionsClient(d.server.URL),
		NewVisitorsClient(d.server.URL),
		nil,
		loan.WithLogger(telemetry.Discard()),
	)

	created, err := loans.CreateLoan(ctx, artefact.ID, "alice")
	require.NoError(t, err)

	marked, err := d.collections.GetArtefact(ctx, artefact.ID)
	require.NoError(t, err)
	require.NotNil(t, marked.ActiveLoanID)
	assert.Equal(t, created.ID, *marked.ActiveLoanID)

	_, err = loans.CreateLoan(ctx, artefact.ID, "alice")
	assert.ErrorIs(t, err, exchange.ErrConflict)

	_, err = loans.UpdateStatus(ctx, created.ID, exchange.StatusCancelled)
	require.NoError(t, err)
	cleared, err := d.collections.GetArtefact(ctx, artefact.ID)
	require.NoError(t, err)
	assert.Nil(t, cleared.ActiveLoanID)
}
