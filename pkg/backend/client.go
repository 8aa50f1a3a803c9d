// Package backend is a typed HTTP client for the assessment REST API that owns
// players, teams, sports, sessions and per-assessment result collections.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alijeyrad/assessflow/config"
	"github.com/Alijeyrad/assessflow/pkg/reqctx"
)

const (
	tracerName      = "github.com/Alijeyrad/assessflow/pkg/backend"
	headerRequestID = "X-Request-Id"
	maxErrorBody    = 64 << 10
)

// Config holds backend client settings.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   uint
	RetryInitial time.Duration
}

// FromCentralConfig converts central config.BackendConfig to package Config.
func FromCentralConfig(c config.BackendConfig) Config {
	cfg := Config{
		BaseURL:      c.BaseURL,
		Timeout:      30 * time.Second,
		RetryInitial: 200 * time.Millisecond,
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = uint(c.MaxRetries)
	}
	if c.RetryInitialMs > 0 {
		cfg.RetryInitial = time.Duration(c.RetryInitialMs) * time.Millisecond
	}
	return cfg
}

// Client is a lightweight assessment backend HTTP client.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxRetries   uint
	retryInitial time.Duration
	tracer       trace.Tracer
}

// NewFromCentral creates a Client from central config.
func NewFromCentral(c config.BackendConfig) (*Client, error) {
	return New(FromCentralConfig(c))
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base url is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 200 * time.Millisecond
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		maxRetries:   cfg.MaxRetries,
		retryInitial: cfg.RetryInitial,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sports", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	_ = res.Body.Close()
	return nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, params any, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do sends a JSON request to baseURL+path and decodes the JSON response into
// out. GETs are retried on transport errors and 5xx/429 responses.
func (c *Client) do(ctx context.Context, method, path string, params any, body any, out any) error {
	target := c.baseURL + path
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		if enc := values.Encode(); enc != "" {
			target += "?" + enc
		}
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	raw, err := c.exchange(ctx, method, path, func(ctx context.Context) (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, r)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	})
	if err != nil {
		return err
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// upload posts a single file as multipart/form-data. Never retried.
func (c *Client) upload(ctx context.Context, path, field, filename string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	raw, err := c.exchange(ctx, http.MethodPost, path, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode upload response: %w", err)
		}
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, method, path string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "backend "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("backend.path", path),
		),
	)
	defer span.End()

	attempt := func() ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		c.decorate(ctx, req)

		raw, err := c.send(req, method, path)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return raw, err
	}

	var (
		raw []byte
		err error
	)
	if method == http.MethodGet && c.maxRetries > 0 {
		raw, err = backoff.Retry(ctx, attempt,
			backoff.WithBackOff(&backoff.ExponentialBackOff{
				InitialInterval:     c.retryInitial,
				RandomizationFactor: backoff.DefaultRandomizationFactor,
				Multiplier:          backoff.DefaultMultiplier,
				MaxInterval:         5 * time.Second,
			}),
			backoff.WithMaxTries(c.maxRetries+1),
		)
	} else {
		raw, err = attempt()
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return raw, nil
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if tok := reqctx.AccessTokenFromContext(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if rid := reqctx.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set(headerRequestID, rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *Client) send(req *http.Request, method, path string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &APIError{
			Method: method,
			Path:   path,
			Status: res.StatusCode,
			Detail: parseDetail(b),
		}
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return b, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

func seg(id string) string {
	return url.PathEscape(id)
}
