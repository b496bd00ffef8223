// Package api клиент HTTP API upstream DevEx платформы и fallback источники снимков.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/dreschagin/devex-dashboard/internal/domain/entity"
	"github.com/dreschagin/devex-dashboard/pkg/logger"
)

// APIError ответ upstream со статусом вне 2xx
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// Temporary сообщает, что ошибка на стороне upstream (5xx или 429)
func (e *APIError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// ClientConfig настройки клиента
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	// Circuit breaker: открывается после BreakerFailures подряд неудачных запросов
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultClientConfig значения по умолчанию
func DefaultClientConfig(baseURL, token string) ClientConfig {
	return ClientConfig{
		BaseURL:         baseURL,
		Token:           token,
		Timeout:         5 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  10 * time.Second,
	}
}

// DashboardResponse ответ GET /api/dashboard
type DashboardResponse struct {
	ActiveBuilds      []entity.Build      `json:"activeBuilds"`
	RecentDeployments []entity.Deployment `json:"recentDeployments"`
}

// Client HTTP клиент upstream API с circuit breaker
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewClient создает клиента
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		logger: log,
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx это ответ upstream, а не его недоступность
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return c
}

// BreakerState текущее состояние circuit breaker
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Dashboard GET /api/dashboard
func (c *Client) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	var out DashboardResponse
	if err := c.do(ctx, http.MethodGet, "/api/dashboard", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Overview GET /api/metrics/overview
func (c *Client) Overview(ctx context.Context) (*entity.Overview, error) {
	var out entity.Overview
	if err := c.do(ctx, http.MethodGet, "/api/metrics/overview", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardData GET /api/dashboard/data
func (c *Client) DashboardData(ctx context.Context) (*entity.DashboardData, error) {
	var out entity.DashboardData
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/data", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryBuild POST /api/builds/{id}/retry
func (c *Client) RetryBuild(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/builds/"+url.PathEscape(id)+"/retry", nil)
}

// ResolveAlert POST /api/alerts/{id}/resolve
func (c *Client) ResolveAlert(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/alerts/"+url.PathEscape(id)+"/resolve", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("upstream %s %s: %w", method, path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call upstream %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Upstream request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: errorMessage(body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage достает {"error": "..."} или {"message": "..."}, иначе текст тела
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
