package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"igpost/pkg/config"
	"igpost/pkg/errors"
	"igpost/pkg/logger"
	"igpost/pkg/ratelimit"
)

// maxErrorBody bounds how much of a failed response is kept on the error
const maxErrorBody = 64 << 10

// Client talks to the public Instagram web endpoints. It is safe for
// concurrent use once configured.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	docID      string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a client for www.instagram.com with default settings
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	return NewClientWithConfig(&config.InstagramConfig{Timeout: timeout}, nil, log)
}

// NewClientWithConfig creates a client from cfg. Empty fields fall back to
// the package defaults. limiter may be nil.
func NewClientWithConfig(cfg *config.InstagramConfig, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		cfg = &config.InstagramConfig{}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = BaseURL
	}
	docID := cfg.DocID
	if docID == "" {
		docID = DocID
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = UserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept-Language": "en-US,en;q=0.9",
		},
		baseURL: baseURL,
		docID:   docID,
		limiter: limiter,
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// BaseURL returns the platform root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request against the platform, waiting on the
// rate limiter first
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, errors.Wrap(errors.ErrorTypeNetwork, "rate limiter wait aborted", err)
		}
	}
	return c.roundTrip(req)
}

// roundTrip sends req with the configured headers. Headers already set on req
// take precedence.
func (c *Client) roundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(errors.ErrorTypeNetwork, fmt.Sprintf("network error: %v", err), err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, float64(duration.Microseconds())/1000)

	return resp, nil
}

// checkResponseStatus maps a non-2xx response to an HTTPStatus error carrying
// the status code and the (truncated) body. It consumes the body on failure.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	fields := map[string]interface{}{
		"status": resp.StatusCode,
	}
	if resp.Request != nil {
		fields["url"] = resp.Request.URL.String()
	}

	switch {
	case errors.IsRetryableStatusCode(resp.StatusCode):
		c.logger.WarnWithFields("request throttled or forbidden", fields)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", fields)
	default:
		c.logger.WarnWithFields("unexpected response status", fields)
	}

	return errors.NewHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidURL, fmt.Sprintf("failed to create request: %v", err), err)
	}
	return req, nil
}

// get performs a GET request and checks its status. The caller closes the body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// postForm sends a form-encoded POST with extra headers and decodes the JSON
// response into target
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string, target interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, fmt.Sprintf("failed to read response body: %v", err), err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, fmt.Sprintf("failed to parse JSON: %v", err), err)
	}

	return nil
}

// DownloadMedia downloads the bytes behind a media URL. Media is served by
// the CDN, so the client's rate limiter is not applied; callers pace
// downloads themselves.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading media", map[string]interface{}{
		"url": mediaURL,
	})

	req, err := c.newRequest(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(req)
	if err == nil {
		if err = c.checkResponseStatus(resp); err != nil {
			resp.Body.Close()
		}
	}
	if err != nil {
		c.logger.ErrorWithFields("failed to download media", map[string]interface{}{
			"url":   mediaURL,
			"error": err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, fmt.Sprintf("failed to download media: %v", err), err)
	}

	c.logger.DebugWithFields("successfully downloaded media", map[string]interface{}{
		"url":  mediaURL,
		"size": len(data),
	})

	return data, nil
}
