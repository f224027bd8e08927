// Package marketrate looks up the current market inflation rate used by the
// price-fairness gate.
package marketrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/infrastructure/cache"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxBodyBytes bounds the response read from the rate provider
const maxBodyBytes = 1 << 20

// HTTPInflationSource fetches the rate from an HTTP JSON endpoint. Any
// failure (transport, status, body, missing value) yields the configured
// fallback; a successful lookup is cached for CacheTTL.
type HTTPInflationSource struct {
	cfg    config.MarketConfig
	client *http.Client
	cache  cache.RateCache
	logger *zap.Logger
}

// Option configures an HTTPInflationSource
type Option func(*HTTPInflationSource)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPInflationSource) {
		s.client = c
	}
}

// WithCache sets the rate cache. Without one every call hits the endpoint.
func WithCache(c cache.RateCache) Option {
	return func(s *HTTPInflationSource) {
		s.cache = c
	}
}

// NewHTTPInflationSource creates a new HTTPInflationSource
func NewHTTPInflationSource(cfg config.MarketConfig, logger *zap.Logger, opts ...Option) *HTTPInflationSource {
	s := &HTTPInflationSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("marketrate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentRate implements reconciliation.InflationSource
func (s *HTTPInflationSource) CurrentRate(ctx context.Context) float64 {
	if s.cache != nil {
		rate, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Rate cache read failed", zap.Error(err))
		} else if ok {
			return rate
		}
	}

	if s.cfg.Endpoint == "" {
		return s.cfg.Fallback
	}

	rate, err := s.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Inflation lookup failed, using fallback",
			zap.Float64("fallback", s.cfg.Fallback),
			zap.Error(err))
		return s.cfg.Fallback
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rate, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("Rate cache write failed", zap.Error(err))
		}
	}
	s.logger.Info("Inflation rate refreshed", zap.Float64("rate", rate))
	return rate
}

// Fetch performs one uncached lookup
func (s *HTTPInflationSource) Fetch(ctx context.Context) (float64, error) {
	endpoint, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return 0, fmt.Errorf("invalid market endpoint: %w", err)
	}
	if s.cfg.Country != "" {
		q := endpoint.Query()
		q.Set("country", s.cfg.Country)
		endpoint.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", s.cfg.APIKey)
	}
	if s.cfg.APIHost != "" {
		req.Header.Set("X-RapidAPI-Host", s.cfg.APIHost)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("market endpoint returned %s", resp.Status)
	}

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode market response: %w", err)
	}
	return extractRate(body, s.cfg.RatePath)
}

// extractRate evaluates path against the decoded body. A path that yields
// a list takes its first element; numeric strings are accepted.
func extractRate(body any, path string) (float64, error) {
	if path == "" {
		path = "$.rate"
	}
	val, err := jsonpath.Get(path, body)
	if err != nil {
		return 0, fmt.Errorf("rate path %q: %w", path, err)
	}
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return 0, fmt.Errorf("rate path %q matched nothing", path)
		}
		val = list[0]
	}

	switch v := val.(type) {
	case float64:
		return v, nil
	case string:
		rate, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("rate %q is not numeric", v)
		}
		return rate, nil
	case nil:
		return 0, errors.New("rate is null")
	default:
		return 0, fmt.Errorf("rate has unexpected type %T", val)
	}
}

var _ reconciliation.InflationSource = (*HTTPInflationSource)(nil)
