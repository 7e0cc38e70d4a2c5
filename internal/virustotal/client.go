package virustotal

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

	"golang.org/x/time/rate"

	"github.com/raysh454/shieldsuite/internal/logging"
)

var (
	ErrNoAPIKey     = errors.New("virustotal API key not configured")
	ErrNotFound     = errors.New("resource not found on virustotal")
	ErrRateLimited  = errors.New("virustotal rate limit exceeded")
	ErrUnauthorized = errors.New("virustotal rejected the API key")
)

// Client talks to the VirusTotal v2 API over net/http.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
}

// NewClient builds a client. httpClient may be nil, in which case one is
// created with cfg.Timeout.
func NewClient(cfg Config, logger logging.Logger, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = logging.Nop()
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst)
	}

	componentLogger := logger.With(logging.Field{Key: "component", Value: "virustotal"})
	componentLogger.Info("created virustotal client",
		logging.Field{Key: "base_url", Value: cfg.BaseURL},
		logging.Field{Key: "enabled", Value: cfg.APIKey != ""},
		logging.Field{Key: "requests_per_minute", Value: cfg.RequestsPerMinute})

	return &Client{
		cfg:     cfg,
		client:  httpClient,
		limiter: limiter,
		logger:  componentLogger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do executes req against the API and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, req *request, out any) error {
	if !c.Enabled() {
		return ErrNoAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.cfg.BaseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if len(req.body) > 0 {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug("sending virustotal request",
		logging.Field{Key: "method", Value: req.method},
		logging.Field{Key: "path", Value: req.path})

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("virustotal request failed",
			logging.Field{Key: "path", Value: req.path},
			logging.Field{Key: "error", Value: err.Error()})
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("virustotal %s: unexpected status %d", req.path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.path, err)
	}
	return nil
}

func (c *Client) formRequest(path string, fields url.Values) *request {
	fields.Set("apikey", c.cfg.APIKey)
	return &request{
		method:      http.MethodPost,
		path:        path,
		body:        []byte(fields.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
}

func (c *Client) multipartRequest(path, filename string, content []byte) (*request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("apikey", c.cfg.APIKey); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return &request{
		method:      http.MethodPost,
		path:        path,
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}, nil
}
