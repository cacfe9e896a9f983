package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrProviderError is returned when the provider answered but the response
// reports a failure.
var ErrProviderError = errors.New("provider reported an error")

// Options tune the HTTP client. They cover what used to be passed to curl.
type Options struct {
	Timeout  time.Duration
	Insecure bool
	Headers  map[string]string
}

// Client issues bearer-authenticated JSON requests against a provider API.
type Client struct {
	baseURL string
	token   string
	headers map[string]string
	http    *http.Client
	log     *logrus.Entry
}

func New(baseURL, token string, opts Options) *Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		headers: opts.Headers,
		http: &http.Client{
			Transport: tr,
			Timeout:   opts.Timeout,
		},
		log: logrus.WithField("component", "transport"),
	}
}

// URL resolves path against the base URL. Absolute URLs, such as next-page
// links returned by the provider, are used as they are.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Do sends body (JSON encoded when not nil) and decodes the response into out
// when out is not nil. A response is a failure when the status is 400 or
// above or when the body mentions "error" anywhere.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := c.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.log.Debugf("%s %s", method, url)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, url, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || bytes.Contains(data, []byte("error")) {
		return fmt.Errorf("%w: %s %s returned status %d: %s", ErrProviderError, method, url, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, url, err)
	}

	return nil
}
