// Package price converts non-stable deposit assets to USD through an HTTP
// price feed. Calls are rate limited and guarded by a circuit breaker. While
// the circuit is open every quote is reported stale and the feed only sees the
// breaker's periodic trial calls.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"aurum/internal/deposit/models"
	"aurum/pkg/platform/circuit"
	"aurum/pkg/requestcontext"
)

const (
	defaultTimeout = 5 * time.Second
	defaultMaxAge  = 5 * time.Minute
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Circuit  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aurum_price_feed_requests_total",
			Help: "Price feed requests by outcome (ok, stale, error, short_circuit)",
		}, []string{"outcome"}),
		Circuit: f.NewGauge(prometheus.GaugeOpts{
			Name: "aurum_price_feed_circuit_open",
			Help: "1 while the price feed circuit is open",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) circuit(change circuit.StateChange) {
	if m == nil {
		return
	}
	if change.Opened {
		m.Circuit.Set(1)
	}
	if change.Closed {
		m.Circuit.Set(0)
	}
}

// Client queries GET {base}/convert?from=&to=&amount= which answers
// {"amount": "...", "as_of": "RFC3339", "stale": false}.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	maxAge  time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit bounds outgoing requests to r per second with burst b.
func WithRateLimit(r rate.Limit, b int) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(r, b)
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

// WithMaxAge sets how old a quote may be before it counts as stale.
func WithMaxAge(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.maxAge = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		breaker: circuit.New("price-feed"),
		maxAge:  defaultMaxAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type quote struct {
	Amount string    `json:"amount"`
	AsOf   time.Time `json:"as_of"`
	Stale  bool      `json:"stale"`
}

// Convert returns amount of from expressed in to. Stale quotes and an open
// circuit yield models.ErrStalePrice. An open circuit skips the feed entirely
// except for the breaker's trial calls.
func (c *Client) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !c.breaker.Allow() {
		c.metrics.observe("short_circuit")
		return decimal.Zero, fmt.Errorf("%w: price feed circuit open", models.ErrStalePrice)
	}
	trial := c.breaker.IsOpen()

	q, err := c.fetch(ctx, from, to, amount)
	c.record(ctx, err)
	switch {
	case err != nil && trial:
		c.metrics.observe("short_circuit")
		return decimal.Zero, fmt.Errorf("%w: price feed circuit open: %v", models.ErrStalePrice, err)
	case err != nil:
		c.metrics.observe("error")
		return decimal.Zero, err
	case c.breaker.IsOpen():
		c.metrics.observe("short_circuit")
		return decimal.Zero, fmt.Errorf("%w: price feed circuit open", models.ErrStalePrice)
	}
	return c.accept(ctx, q)
}

func (c *Client) accept(ctx context.Context, q *quote) (decimal.Decimal, error) {
	if q.Stale || (!q.AsOf.IsZero() && requestcontext.Now(ctx).Sub(q.AsOf) > c.maxAge) {
		c.metrics.observe("stale")
		return decimal.Zero, fmt.Errorf("%w: quote as of %s", models.ErrStalePrice, q.AsOf.Format(time.RFC3339))
	}
	out, err := decimal.NewFromString(q.Amount)
	if err != nil {
		c.metrics.observe("error")
		return decimal.Zero, fmt.Errorf("price feed returned invalid amount %q: %w", q.Amount, err)
	}
	c.metrics.observe("ok")
	return out.Truncate(0), nil
}

func (c *Client) record(ctx context.Context, err error) {
	var change circuit.StateChange
	if err != nil {
		_, change = c.breaker.RecordFailure()
	} else {
		_, change = c.breaker.RecordSuccess()
	}
	c.metrics.circuit(change)
	if c.logger == nil {
		return
	}
	if change.Opened {
		c.logger.WarnContext(ctx, "price feed circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
	if change.Closed {
		c.logger.InfoContext(ctx, "price feed circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) fetch(ctx context.Context, from, to string, amount decimal.Decimal) (*quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("price feed rate limit: %w", err)
	}
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	q.Set("amount", amount.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/convert?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}
	var out quote
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}
	return &out, nil
}
