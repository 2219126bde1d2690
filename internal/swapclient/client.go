// Package swapclient posts conversion forms to a chordbook server and
// returns the replacement markup.
package swapclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/chordbook/internal/readiness"
)

const maxResponseSize = 1 << 20

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("swapclient: unexpected status")

// Config holds the endpoint and the bearer token. The token is passed in
// explicitly rather than read from the page.
type Config struct {
	Endpoint string        `yaml:"endpoint" toml:"endpoint"`
	Token    string        `yaml:"token" toml:"token"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
}

// Validate validates the client configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required, is.URL),
	)
}

// Client talks to the conversion endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a client. A zero Timeout means 10s.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("swapclient: config: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Convert posts form to the endpoint and returns the response body.
func (c *Client) Convert(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("swapclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("swapclient: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("swapclient: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// ReadyCheck returns a readiness probe that GETs /health/ready on the
// endpoint's host.
func (c *Client) ReadyCheck() readiness.Check {
	return func(ctx context.Context) error {
		u, err := url.Parse(c.cfg.Endpoint)
		if err != nil {
			return err
		}
		u.Path = "/health/ready"
		u.RawQuery = ""
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
		}
		return nil
	}
}
