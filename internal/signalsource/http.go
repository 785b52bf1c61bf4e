package signalsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signal-trade-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultPageSize   = 500
)

// HTTPSource implements Source against the historical signal API. Pages are
// fetched lazily on Next; cursor state makes the source one-shot.
type HTTPSource struct {
	apiURL     string
	apiKey     string
	start, end int64
	pageSize   int

	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration

	cursor    string
	firstPage bool
	done      bool
}

// HTTPOption configures HTTPSource.
type HTTPOption func(*HTTPSource)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts per page.
func WithMaxRetries(n int) HTTPOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.retryDelay = d
	}
}

// WithPageSize sets the page size requested per fetch.
func WithPageSize(n int) HTTPOption {
	return func(s *HTTPSource) {
		s.pageSize = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a paginated source over [start, end] (unix ms).
func NewHTTPSource(apiURL, apiKey string, start, end int64, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		apiURL:     apiURL,
		apiKey:     apiKey,
		start:      start,
		end:        end,
		pageSize:   DefaultPageSize,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
		firstPage:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// signalPage is the wire shape of one history page.
type signalPage struct {
	Signals    []*domain.Signal `json:"signals"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Next fetches the next page. Returns io.EOF when the range is exhausted.
func (s *HTTPSource) Next(ctx context.Context) ([]*domain.Signal, error) {
	if s.done {
		return nil, io.EOF
	}
	if !s.firstPage && s.cursor == "" {
		s.done = true
		return nil, io.EOF
	}

	page, err := s.fetchPage(ctx)
	if err != nil {
		return nil, err
	}

	s.firstPage = false
	s.cursor = page.NextCursor
	if page.NextCursor == "" {
		s.done = true
	}
	if len(page.Signals) == 0 {
		if s.done {
			return nil, io.EOF
		}
		return nil, nil
	}
	return page.Signals, nil
}

// fetchPage performs one page request with retries and exponential backoff.
func (s *HTTPSource) fetchPage(ctx context.Context) (*signalPage, error) {
	var lastErr error
	delay := s.retryDelay

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		page, err := s.doRequest(ctx)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	return nil, fmt.Errorf("fetch signal page after %d retries: %w", s.maxRetries, lastErr)
}

func (s *HTTPSource) doRequest(ctx context.Context) (*signalPage, error) {
	u, err := url.Parse(s.apiURL + "/signals")
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}

	q := u.Query()
	q.Set("start", strconv.FormatInt(s.start, 10))
	q.Set("end", strconv.FormatInt(s.end, 10))
	q.Set("limit", strconv.Itoa(s.pageSize))
	if s.cursor != "" {
		q.Set("cursor", s.cursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("signal api status %d: %s", resp.StatusCode, body)
	}

	var page signalPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode signal page: %w", err)
	}
	return &page, nil
}

var _ Source = (*HTTPSource)(nil)
