// internal/clients/client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"mmss/internal/exchange"
	"mmss/internal/httpapi"
)

// Option configures a directory client.
type Option func(*client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *client) { c.logger = logger }
}

// WithBreaker overrides the circuit breaker settings. Name and the success
// classifier are always set by the client.
func WithBreaker(settings gobreaker.Settings) Option {
	return func(c *client) { c.settings = settings }
}

// client is the JSON transport shared by the directory clients. Calls run
// through a circuit breaker that only counts transport and 5xx failures, so a
// stream of NotFound answers never opens it.
type client struct {
	name     string
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	settings gobreaker.Settings
	breaker  *gobreaker.CircuitBreaker
}

func newClient(name, baseURL string, opts ...Option) *client {
	c := &client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		logger:  slog.Default(),
		settings: gobreaker.Settings{
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	settings := c.settings
	settings.Name = name
	settings.IsSuccessful = func(err error) bool {
		return err == nil || exchange.KindOf(err) != "internal"
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

// do sends in as the JSON body and decodes a 2xx answer into out. Error
// answers are turned back into *exchange.Error when the body carries a kind.
func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, in, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s directory unavailable: %w", c.name, err)
	}
	return err
}

func (c *client) roundTrip(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", c.name, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}
	return nil
}

var kinds = map[string]error{
	"not_found":          exchange.ErrNotFound,
	"conflict":           exchange.ErrConflict,
	"invalid_transition": exchange.ErrInvalidTransition,
	"validation":         exchange.ErrValidation,
}

func decodeError(resp *http.Response) error {
	var body httpapi.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	kind, ok := kinds[body.Error]
	if !ok {
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, body.Message)
	}
	return &exchange.Error{
		Kind:    kind,
		Entity:  body.Entity,
		ID:      body.ID,
		Field:   body.Field,
		Message: body.Message,
	}
}
