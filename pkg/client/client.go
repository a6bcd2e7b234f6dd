// Package client calls the shop API from other Go programs. Purchases that
// are rate limited or hit a transient store failure are retried with the
// same idempotency key, so a retry never debits twice.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prepaid-shop/internal/dto/request"
	"prepaid-shop/internal/dto/response"
	"prepaid-shop/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 6
	DefaultBaseDelay  = 200 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
)

// APIError is a non-2xx answer from the shop
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("shop api: %d %s (%s)", e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("shop api: %d %s", e.StatusCode, e.Message)
}

// InsufficientBalance reports a 402 answer
func (e *APIError) InsufficientBalance() bool {
	return e.StatusCode == http.StatusPaymentRequired
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRetries(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
		sleep:      sleepContext,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Purchase posts a cart. An empty IdempotencyKey is filled with a fresh UUID
// so every retry of this call carries the same key.
func (c *Client) Purchase(ctx context.Context, req request.PurchaseRequest) (*response.PurchaseResponse, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal purchase: %w", err)
	}

	var receipt response.PurchaseResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/purchase", body, req.IdempotencyKey, &receipt); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// Balance reads the current balance of phone
func (c *Client) Balance(ctx context.Context, phone string) (*response.BalanceResponse, error) {
	var balance response.BalanceResponse
	path := "/balance?phone=" + utils.NormalizePhone(phone)
	if err := c.doWithRetry(ctx, http.MethodGet, path, nil, "", &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) error {
	for attempt := 0; ; attempt++ {
		retryAfter, err := c.do(ctx, method, path, body, idempotencyKey, out)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !retryable(apiErr.StatusCode) || attempt >= c.maxRetries {
			return err
		}

		delay := c.backoff(attempt, retryAfter)
		c.log.Debug("Retrying shop request",
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)

		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, idempotencyKey string, out any) (time.Duration, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
		return 0, nil
	}

	var errBody utils.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errBody)

	message := errBody.Error
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return parseRetryAfter(resp.Header.Get("Retry-After")), &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Reason:     errBody.Reason,
	}
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// backoff doubles from baseDelay up to maxDelay; a longer Retry-After wins
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	delay := c.baseDelay
	for i := 0; i < attempt && delay < c.maxDelay; i++ {
		delay *= 2
	}
	if delay > c.maxDelay {
		delay = c.maxDelay
	}
	if retryAfter > delay {
		delay = retryAfter
	}
	return delay
}

// parseRetryAfter understands the delay-seconds form only
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
