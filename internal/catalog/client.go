// Package catalog talks to the game collection REST endpoint.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"gamedex/internal/logging"
	"gamedex/internal/metrics"
	"gamedex/internal/normalize"
	"gamedex/pkg/models"
)

// Filter holds the optional query parameters of the collection endpoint.
// Empty fields are not sent.
type Filter struct {
	Search   string
	Category string
	Slug     string
}

func (f Filter) values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		v.Set("search", s)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		v.Set("category", c)
	}
	if s := strings.TrimSpace(f.Slug); s != "" {
		v.Set("slug", s)
	}
	return v
}

// Client reads the catalog.
type Client interface {
	List(ctx context.Context, f Filter) ([]models.CatalogItem, error)
	Detail(ctx context.Context, id models.ID) (*models.DetailRecord, error)
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures uint32        // consecutive failures before opening
	OpenTimeout time.Duration // time spent open before a trial request
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:3001/games",
		Timeout: 15 * time.Second,
		Breaker: BreakerConfig{Enabled: true, MaxFailures: 5, OpenTimeout: 30 * time.Second},
	}
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[*response]
	log        zerolog.Logger
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// errServer marks a 5xx answer so the breaker counts it.
var errServer = errors.New("server error")

func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        logging.With("catalog"),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.log)
	}
	return c
}

func newBreaker(cfg BreakerConfig, log zerolog.Logger) *gobreaker.CircuitBreaker[*response] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "catalog-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.SetBreakerState(int(to))
		},
	})
}

// BaseURL returns the collection endpoint.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// List fetches the collection. The body must be a JSON array, or an object
// carrying the array under "games" or "items".
func (c *HTTPClient) List(ctx context.Context, f Filter) ([]models.CatalogItem, error) {
	endpoint := c.baseURL
	if q := f.values().Encode(); q != "" {
		endpoint += "?" + q
	}

	resp, err := c.get(ctx, "list", endpoint)
	if err != nil {
		return nil, err
	}

	var items []models.CatalogItem
	if err := json.Unmarshal(resp.body, &items); err == nil {
		if items == nil {
			return nil, newError(ErrFormat, "list", endpoint, resp.status, errors.New("body is null"))
		}
		return items, nil
	}

	var envelope struct {
		Games []models.CatalogItem `json:"games"`
		Items []models.CatalogItem `json:"items"`
	}
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, newError(ErrFormat, "list", endpoint, resp.status, err)
	}
	switch {
	case envelope.Games != nil:
		return envelope.Games, nil
	case envelope.Items != nil:
		return envelope.Items, nil
	default:
		return nil, newError(ErrFormat, "list", endpoint, resp.status, errors.New("body is not a list"))
	}
}

// envelopeKeys are tried in order; the first holding an object wins.
var envelopeKeys = []string{"game", "item", "data"}

// Detail fetches one record and normalises it. A 404 yields ErrNotFound.
func (c *HTTPClient) Detail(ctx context.Context, id models.ID) (*models.DetailRecord, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(id.String())

	resp, err := c.get(ctx, "detail", endpoint)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(resp.body))
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(ErrFormat, "detail", endpoint, resp.status, err)
	}
	if raw == nil {
		return nil, newError(ErrFormat, "detail", endpoint, resp.status, errors.New("body is null"))
	}
	return normalize.Detail(unwrap(raw)), nil
}

func unwrap(raw map[string]any) map[string]any {
	for _, k := range envelopeKeys {
		if inner, ok := raw[k].(map[string]any); ok {
			return inner
		}
	}
	return raw
}

func (c *HTTPClient) get(ctx context.Context, op, endpoint string) (*response, error) {
	resp, err := c.fetch(ctx, op, endpoint)
	metrics.RecordClientRequest(op, outcome(err))
	return resp, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "open"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFormat):
		return "format"
	default:
		return "network"
	}
}

func (c *HTTPClient) fetch(ctx context.Context, op, endpoint string) (*response, error) {
	requestID := uuid.NewString()
	start := time.Now()

	do := func() (*response, error) { return c.do(ctx, endpoint, requestID) }
	var (
		resp *response
		err  error
	)
	if c.breaker != nil {
		resp, err = c.breaker.Execute(do)
	} else {
		resp, err = do()
	}

	ev := c.log.Debug().Str("op", op).Str("url", endpoint).Str("request_id", requestID).Dur("took", time.Since(start))
	if resp != nil {
		ev = ev.Int("status", resp.status)
	}
	ev.Err(err).Msg("catalog request")

	if err != nil {
		if resp != nil && errors.Is(err, errServer) {
			return nil, newError(ErrNetwork, op, endpoint, resp.status, nil)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(ErrNetwork, op, endpoint, 0, err)
	}

	if resp.status == http.StatusNotFound {
		return nil, newError(ErrNotFound, op, endpoint, resp.status, nil)
	}
	if resp.status < 200 || resp.status >= 300 {
		return nil, newError(ErrNetwork, op, endpoint, resp.status, nil)
	}
	if !isJSON(resp.contentType) {
		return nil, newError(ErrFormat, op, endpoint, resp.status, fmt.Errorf("content type %q", resp.contentType))
	}
	return resp, nil
}

// do performs the request. Only transport failures and 5xx answers are
// reported as errors, so client errors never trip the breaker.
func (c *HTTPClient) do(ctx context.Context, endpoint, requestID string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	out := &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
	}
	if resp.StatusCode >= 500 {
		return out, errServer
	}
	return out, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
