// Package executor is the HTTP adapter for the scan execution service.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/dnscache"
	"github.com/rs/zerolog/log"

	scanerrors "pentellia/scan-core/internal/errors"
	"pentellia/scan-core/internal/metrics"
	"pentellia/scan-core/internal/model"
)

const (
	apiKeyHeader    = "X-API-Key"
	maxResponseSize = 32 << 20

	opEnqueue = "enqueue"
	opStatus  = "status"
	opResults = "results"
	opCancel  = "cancel"
)

// Config configures the executor client. Zero timeouts fall back to defaults.
type Config struct {
	BaseURL        string
	APIKey         string
	StatusTimeout  time.Duration
	ResultsTimeout time.Duration
	CancelTimeout  time.Duration
	EnqueueTimeout time.Duration
	DNSCacheTTL    time.Duration
	// HTTPClient replaces the DNS-caching client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks to the executor's status/results/cancel/scan endpoints.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client

	statusTimeout  time.Duration
	resultsTimeout time.Duration
	cancelTimeout  time.Duration
	enqueueTimeout time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds a Client. The caller must Close it to stop the DNS refresher.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse executor url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("executor url %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	c := &Client{
		baseURL:        base,
		apiKey:         cfg.APIKey,
		statusTimeout:  orDefault(cfg.StatusTimeout, 10*time.Second),
		resultsTimeout: orDefault(cfg.ResultsTimeout, 30*time.Second),
		cancelTimeout:  orDefault(cfg.CancelTimeout, 10*time.Second),
		enqueueTimeout: orDefault(cfg.EnqueueTimeout, 30*time.Second),
		stop:           make(chan struct{}),
	}
	if cfg.HTTPClient != nil {
		c.http = cfg.HTTPClient
	} else {
		c.http = &http.Client{Transport: c.cachingTransport(orDefault(cfg.DNSCacheTTL, 5*time.Minute))}
	}
	return c, nil
}

// Close stops background DNS refresh.
func (c *Client) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

type enqueueRequest struct {
	Tool   string         `json:"tool"`
	Target string         `json:"target"`
	Params map[string]any `json:"params,omitempty"`
}

type enqueueResponse struct {
	JobID string `json:"job_id"`
	ID    string `json:"id"`
}

// Enqueue submits a scan and returns the executor's job id.
func (c *Client) Enqueue(ctx context.Context, tool, target string, params map[string]any) (string, error) {
	body, err := json.Marshal(enqueueRequest{Tool: tool, Target: target, Params: params})
	if err != nil {
		return "", fmt.Errorf("encode enqueue request: %w", err)
	}
	data, err := c.do(ctx, opEnqueue, "", http.MethodPost, "/scan", body, c.enqueueTimeout)
	if err != nil {
		return "", err
	}

	var resp enqueueResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", scanerrors.NewExecutorError(opEnqueue, "", 0, fmt.Errorf("decode response: %w", err))
	}
	id := resp.JobID
	if id == "" {
		id = resp.ID
	}
	if id == "" {
		return "", scanerrors.NewExecutorError(opEnqueue, "", 0, fmt.Errorf("response carried no job id"))
	}
	return id, nil
}

// Status reports the executor's view of a job. A 404 surfaces as an error
// matching ErrExecutorJobMissing; every other failure matches
// ErrExecutorUnreachable.
func (c *Client) Status(ctx context.Context, externalJobID string) (model.Status, error) {
	data, err := c.do(ctx, opStatus, externalJobID, http.MethodGet, "/status/"+url.PathEscape(externalJobID), nil, c.statusTimeout)
	if err != nil {
		return "", err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", scanerrors.NewExecutorError(opStatus, externalJobID, 0, fmt.Errorf("decode response: %w", err))
	}
	status := model.Status(strings.ToLower(strings.TrimSpace(resp.Status)))
	if !status.Valid() {
		return "", scanerrors.NewExecutorError(opStatus, externalJobID, 0, fmt.Errorf("unexpected status %q", resp.Status))
	}
	return status, nil
}

// Results fetches the raw result payload. The payload is returned verbatim,
// including tool-level {"error": ...} bodies.
func (c *Client) Results(ctx context.Context, externalJobID string) (json.RawMessage, error) {
	data, err := c.do(ctx, opResults, externalJobID, http.MethodGet, "/results/"+url.PathEscape(externalJobID), nil, c.resultsTimeout)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, scanerrors.NewExecutorError(opResults, externalJobID, 0, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(data), nil
}

// Cancel asks the executor to stop a job.
func (c *Client) Cancel(ctx context.Context, externalJobID string) error {
	_, err := c.do(ctx, opCancel, externalJobID, http.MethodPost, "/cancel/"+url.PathEscape(externalJobID), nil, c.cancelTimeout)
	return err
}

func (c *Client) do(ctx context.Context, op, externalJobID, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ExecutorDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return nil, scanerrors.NewExecutorError(op, externalJobID, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ExecutorRequests.WithLabelValues(op, "transport_error").Inc()
		return nil, scanerrors.NewExecutorError(op, externalJobID, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		metrics.ExecutorRequests.WithLabelValues(op, "transport_error").Inc()
		return nil, scanerrors.NewExecutorError(op, externalJobID, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ExecutorRequests.WithLabelValues(op, fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, scanerrors.NewExecutorError(op, externalJobID, resp.StatusCode, fmt.Errorf("%s", http.StatusText(resp.StatusCode)))
	}
	metrics.ExecutorRequests.WithLabelValues(op, "ok").Inc()
	return data, nil
}

// cachingTransport resolves executor hostnames through a DNS cache that is
// refreshed every ttl until Close.
func (c *Client) cachingTransport(ttl time.Duration) *http.Transport {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(true)
			case <-c.stop:
				return
			}
		}
	}()

	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no addresses for %s", host)
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		log.Debug().Err(lastErr).Str("host", host).Msg("Executor dial failed on all cached addresses")
		return nil, lastErr
	}
	return transport
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
