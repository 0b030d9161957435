package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/logging"
	"pmconsole/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const maxBodyBytes = 4 << 20

// Request is one call to the property backend.
type Request struct {
	// Name labels the call in logs and metrics; defaults to "METHOD path".
	Name      string
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Cacheable bool
}

func (r Request) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Path
}

// Client issues authenticated JSON requests to the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

// New constructs a client for the configured backend.
func New(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	log := logging.Component(logger, "backend")
	trips := cfg.Breaker.MaxConsecutiveFailures
	if trips == 0 {
		trips = 3
	}
	open := time.Duration(cfg.Breaker.OpenSeconds) * time.Second
	if open <= 0 {
		open = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "property-backend",
			MaxRequests: 1,
			Timeout:     open,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= trips
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				// 4xx means the backend is up and answering
				var te *TransportError
				return errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500
			},
		}),
	}
}

// UseRedisCache enables caching of Cacheable GET responses.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Do sends the request with the caller's bearer token and returns the decoded
// JSON body. Every failure is a *TransportError.
func (c *Client) Do(ctx context.Context, token string, req Request) (any, error) {
	label := req.label()
	start := time.Now()

	cacheKey := ""
	if req.Cacheable && req.Method == http.MethodGet {
		cacheKey = c.cacheKey(token, req)
		if body, ok := c.readCache(ctx, cacheKey); ok {
			if payload, err := decode(label, body); err == nil {
				metrics.ObserveUpstream(label, "cache", time.Since(start))
				return payload, nil
			}
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, token, req, label)
	})
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) {
			te = &TransportError{Endpoint: label, Err: err}
		}
		metrics.ObserveUpstream(label, outcome(te), time.Since(start))
		c.logger.Warn().Err(te).Str("endpoint", label).Int("status", te.StatusCode).Msg("backend call failed")
		return nil, te
	}

	body := result.([]byte)
	payload, err := decode(label, body)
	if err != nil {
		metrics.ObserveUpstream(label, "malformed", time.Since(start))
		return nil, err
	}
	if cacheKey != "" && cacheable(payload) {
		c.writeCache(ctx, cacheKey, body)
	}
	metrics.ObserveUpstream(label, "ok", time.Since(start))
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, token string, req Request, label string) ([]byte, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &TransportError{Endpoint: label, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Endpoint: label, Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Endpoint: label, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: label, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Endpoint:   label,
			StatusCode: resp.StatusCode,
			Body:       body,
			Message:    bodyMessage(body),
		}
	}
	return body, nil
}

// cacheable keeps business failures out of the cache; only the top-level flag
// is consulted.
func cacheable(payload any) bool {
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload != nil
	}
	return obj["success"] != false
}

func decode(label string, body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TransportError{Endpoint: label, Body: body, Err: fmt.Errorf("%w: %v", errMalformedBody, err)}
	}
	return payload, nil
}

func bodyMessage(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if msg, ok := parsed[key].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return ""
}

func outcome(te *TransportError) string {
	switch {
	case te.StatusCode != 0:
		return fmt.Sprintf("http_%d", te.StatusCode)
	case te.Unavailable():
		return "breaker_open"
	case te.Timeout():
		return "timeout"
	default:
		return "network"
	}
}

// cacheKey never embeds the raw token.
func (c *Client) cacheKey(token string, req Request) string {
	sum := sha256.Sum256([]byte(token))
	key := "pmconsole:cache:" + hex.EncodeToString(sum[:6]) + ":" + req.Path
	if len(req.Query) > 0 {
		key += "?" + req.Query.Encode()
	}
	return key
}

func (c *Client) readCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *Client) writeCache(ctx context.Context, key string, body []byte) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.redis.Set(ctx, key, body, c.cacheTTL).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("cache write failed")
	}
}
