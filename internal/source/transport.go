package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/floodpan/internal/logger"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; floodpan/1.0; +https://github.com/ppiankov/floodpan)"
	maxBodyBytes     = 16 << 20
)

// headerTransport injects fixed headers into every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// httpSource holds the HTTP client shared by every page of one source.
type httpSource struct {
	name    string
	timeout time.Duration
	headers map[string]string
	log     logger.Logger

	client *http.Client
}

func newHTTPSource(name string, timeout time.Duration, headers map[string]string, log logger.Logger) httpSource {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	h := map[string]string{"User-Agent": defaultUserAgent}
	for k, v := range headers {
		h[k] = v
	}
	return httpSource{name: name, timeout: timeout, headers: h, log: log.With(logger.String("source", name))}
}

func (s *httpSource) Name() string {
	return s.name
}

func (s *httpSource) Initialize(_ context.Context) error {
	if s.client != nil {
		return nil
	}
	s.client = &http.Client{
		Timeout:   s.timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: s.headers},
	}
	s.log.Debug("client initialized")
	return nil
}

func (s *httpSource) Close() error {
	if s.client == nil {
		return nil
	}
	s.client.CloseIdleConnections()
	s.client = nil
	s.log.Debug("client closed")
	return nil
}

// get fetches url and returns the body, mapping failures onto FetchError.
func (s *httpSource) get(ctx context.Context, url string) ([]byte, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, transportError(s.name, url, fmt.Errorf("create request: %w", err))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(s.name, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(s.name, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportError(s.name, url, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// ctxErr maps a cancelled context to a transport error so callers see a
// single taxonomy.
func (s *httpSource) ctxErr(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return transportError(s.name, "", err)
	}
	return err
}
