// Package catalog talks to the two app stores over HTTP.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-apps/metrics"
)

// Options configures a catalog client.
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Metrics           *metrics.Metrics
}

// client is the colly-backed transport shared by both store clients.
// Every call clones the base collector so callbacks never leak between requests.
type client struct {
	store     string
	baseURL   *url.URL
	collector *colly.Collector
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
}

func newClient(store string, opts Options) (*client, error) {
	parsed, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s base url: %w", store, err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%s base url must include a host", store)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &client{
		store:     store,
		baseURL:   parsed,
		collector: collector,
		limiter:   rate.NewLimiter(limit, 1),
		metrics:   opts.Metrics,
	}, nil
}

// WithTransport swaps the HTTP transport, mainly for tests.
func (c *client) WithTransport(rt http.RoundTripper) {
	c.collector.WithTransport(rt)
}

func (c *client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// getJSON issues one GET and decodes the body into out.
func (c *client) getJSON(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	collector := c.collector.Clone()
	var (
		body   []byte
		status int
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	start := time.Now()
	c.metrics.IncRequest(c.store)
	err := collector.Visit(endpoint)
	c.metrics.ObserveDuration(c.store, time.Since(start))
	if err != nil {
		return classifyError(err, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ErrDecode{Err: err}
	}
	return nil
}
