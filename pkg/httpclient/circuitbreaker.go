package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig tunes the breaker guarding an outbound dependency.
type CircuitBreakerConfig struct {
	// Name identifies the dependency in metrics and logs, e.g.
	// "commerce-backend".
	Name string

	// MaxRequests allowed through in the half-open state; 0 means 1.
	MaxRequests uint32

	// Interval between resets of the closed-state counters. 0 keeps
	// counting forever.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio of observed requests that trips the breaker.
	FailureRatio float64

	// MinRequests observed before the ratio is evaluated, so a single
	// early failure cannot open the breaker.
	MinRequests uint32
}

var breakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "outbound_circuit_breaker_state",
		Help: "Circuit breaker state per outbound dependency (0=closed, 1=half-open, 2=open).",
	},
	[]string{"name"},
)

func gaugeValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient layers a breaker over Client. A 5xx answer counts as
// a failure so a struggling backend trips the breaker; 4xx answers are the
// backend working as intended and pass through untouched, which keeps cart
// rejections from blocking the manual-order fallback path.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *slog.Logger
	name    string
}

func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(gaugeValue(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(gaugeValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Do executes the request through the breaker. While the breaker is open it
// returns ErrCircuitOpen without touching the network.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
		}
		return resp, nil
	})
}

// State exposes the breaker state for health reporting.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
