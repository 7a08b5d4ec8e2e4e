// internal/app/services.go
package app

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"mmss/internal/collections"
	"mmss/internal/loan"
	"mmss/internal/telemetry"
	"mmss/internal/tour"
	"mmss/internal/visitors"
)

// Options tunes the services built by NewServices. Zero values pick the
// package defaults.
type Options struct {
	LoanPeriod int
	Capacity   int
	Pricing    tour.PricingPolicy

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
	Limiter *rate.Limiter

	// Artefacts and People replace the in-process directories, for example
	// with HTTP clients. WrapArtefacts, when set, decorates whichever
	// artefact directory the loan service ends up with.
	Artefacts     loan.Artefacts
	People        loan.Visitors
	WrapArtefacts func(loan.Artefacts) loan.Artefacts
}

// Services is the running engine: both exchange services and the directories
// they were wired to.
type Services struct {
	Loans       loan.Service
	Tours       tour.Service
	Collections collections.Service
	Visitors    visitors.Service
}

func NewServices(ctx context.Context, stores Stores, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	visitorOpts := []visitors.Option{visitors.WithLogger(logger)}
	if opts.Limiter != nil {
		visitorOpts = append(visitorOpts, visitors.WithRateLimiter(opts.Limiter))
	}
	s := &Services{
		Collections: collections.NewService(stores.Artefacts, stores.Events, collections.WithLogger(logger)),
		Visitors:    visitors.NewService(stores.Visitors, stores.Events, visitorOpts...),
	}

	var artefacts loan.Artefacts = s.Collections
	if opts.Artefacts != nil {
		artefacts = opts.Artefacts
	}
	if opts.WrapArtefacts != nil {
		artefacts = opts.WrapArtefacts(artefacts)
	}
	var people loan.Visitors = s.Visitors
	if opts.People != nil {
		people = opts.People
	}

	loanOpts := []loan.Option{loan.WithLogger(logger), loan.WithMetrics(opts.Metrics)}
	if opts.LoanPeriod > 0 {
		loanOpts = append(loanOpts, loan.WithLoanPeriod(opts.LoanPeriod))
	}
	s.Loans = loan.NewService(stores.Loans, artefacts, people, stores.Events, loanOpts...)

	tourOpts := []tour.Option{tour.WithLogger(logger), tour.WithMetrics(opts.Metrics)}
	if opts.Capacity > 0 {
		tourOpts = append(tourOpts, tour.WithCapacity(opts.Capacity))
	}
	if opts.Pricing != nil {
		tourOpts = append(tourOpts, tour.WithPricing(opts.Pricing))
	}
	tours, err := tour.NewService(ctx, stores.Tours, people, stores.Events, tourOpts...)
	if err != nil {
		return nil, err
	}
	s.Tours = tours
	return s, nil
}
