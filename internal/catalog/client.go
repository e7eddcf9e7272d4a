package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/mmeshcher/storefront/internal/metrics"
)

// ErrTooManyRequests возвращается, если источник каталога попросил подождать.
var ErrTooManyRequests = errors.New("catalog source rate limited")

// Client загружает каталог целиком из внешнего источника.
type Client struct {
	url     string
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient создаёт клиент удалённого каталога по указанному адресу.
func NewClient(url string) *Client {
	url = strings.TrimRight(url, "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			metrics.CatalogBreakerState.Set(breakerStateValue(to))
		},
	})

	return &Client{
		url: url,
		http: resty.New().
			SetTimeout(5*time.Second).
			SetHeader("Accept", "application/json"),
		breaker: breaker,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

type fetchResult struct {
	catalog    *Catalog
	retryAfter time.Duration
}

// Fetch запрашивает каталог. При ответе 429 возвращает ErrTooManyRequests и паузу из Retry-After.
func (c *Client) Fetch(ctx context.Context) (*Catalog, time.Duration, error) {
	if c == nil || c.url == "" {
		return nil, 0, fmt.Errorf("catalog client not configured")
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, 0, err
	}

	r := res.(fetchResult)
	if r.catalog == nil {
		return nil, r.retryAfter, ErrTooManyRequests
	}
	return r.catalog, 0, nil
}

func (c *Client) fetch(ctx context.Context) (fetchResult, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return fetchResult{}, fmt.Errorf("do request: %w", err)
	}

	// 429 не считается отказом источника.
	if resp.StatusCode() == http.StatusTooManyRequests {
		return fetchResult{retryAfter: parseRetryAfter(resp.Header().Get("Retry-After"), time.Now())}, nil
	}

	if resp.StatusCode() != http.StatusOK {
		return fetchResult{}, fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	cat, err := Parse(resp.Body())
	if err != nil {
		return fetchResult{}, err
	}
	return fetchResult{catalog: cat}, nil
}

// parseRetryAfter разбирает Retry-After в секундах или в виде HTTP-даты.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
