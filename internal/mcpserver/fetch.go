package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/chordbook/internal/storage"
)

const (
	fetchTimeout = 30 * time.Second
	maxRedirects = 5
)

// fetchHTTP downloads a sheet over http(s). Requests to loopback, link-local
// and cloud metadata hosts are refused, including after redirects.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s (only http/https)", u.Scheme)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "text/plain, text/html;q=0.9, */*;q=0.1")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Tab pages wrap the sheet in a much larger document; the extracted
	// text is held to the song limit later.
	return io.ReadAll(io.LimitReader(resp.Body, 4*storage.MaxSongSize))
}

var metadataIP = net.ParseIP("169.254.169.254")

// checkBlockedHost rejects loopback, link-local and cloud metadata hosts.
// Names that fail to resolve are left for the HTTP client to report.
func checkBlockedHost(host string) error {
	if host == "" {
		return errors.New("missing host")
	}
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil {
			return nil //nolint:nilerr // DNS failures surface from client.Do
		}
		ips = resolved
	}
	for _, ip := range ips {
		switch {
		case ip.Equal(metadataIP):
			return fmt.Errorf("blocked host: cloud metadata address %s", host)
		case ip.IsLoopback(), ip.IsLinkLocalUnicast(), ip.IsUnspecified():
			return fmt.Errorf("blocked host: local address %s", host)
		}
	}
	return nil
}
