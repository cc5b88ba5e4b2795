package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// restClient is a small fasthttp wrapper shared by the indexer clients.
type restClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	headers map[string]string
	chainID string
}

func newRESTClient(chainID, baseURL string, timeout time.Duration, limiter *rate.Limiter, headers map[string]string) *restClient {
	return &restClient{
		client:  &fasthttp.Client{Name: "multichain-wallet"},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		limiter: limiter,
		headers: headers,
		chainID: chainID,
	}
}

// statusError reports a non-2xx reply. It wraps port.ErrUpstreamStatus.
type statusError struct {
	URL    string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.Status, e.Body)
}

func (e *statusError) Unwrap() error {
	return port.ErrUpstreamStatus
}

// do executes one request and returns the status code and a copy of the body.
func (c *restClient) do(ctx context.Context, op, method, path, contentType string, body []byte) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	requestURL := c.baseURL + path
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	err := c.client.DoDeadline(req, resp, deadline)
	metrics.ObserveRPC(c.chainID, op, err)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	out := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		metrics.RPCFailures.WithLabelValues(c.chainID, op).Inc()
		return status, out, &statusError{URL: requestURL, Status: status, Body: truncate(string(out), 256)}
	}
	return status, out, nil
}

func (c *restClient) getJSON(ctx context.Context, op, path string, v any) error {
	_, body, err := c.do(ctx, op, fasthttp.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal response from %s%s: %w", c.baseURL, path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
