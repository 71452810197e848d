package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for resume fetch operations.
var (
	// ErrNotText is returned when the response Content-Type is not textual.
	ErrNotText = errors.New("fetch: response is not text")
	// ErrTooLarge is returned when the resume exceeds the maximum allowed size.
	ErrTooLarge = errors.New("fetch: resume exceeds maximum size")
	// ErrFetchFailed is returned when the fetch fails due to network or HTTP errors.
	ErrFetchFailed = errors.New("fetch: request failed")
	// ErrPrivateAddress is returned when the URL resolves to a private/internal
	// network address.
	ErrPrivateAddress = errors.New("fetch: request to private network denied")
)

// FetcherConfig holds fetcher configuration.
type FetcherConfig struct {
	// Timeout is the HTTP request timeout. Default: 30 seconds.
	Timeout time.Duration
	// MaxSize is the maximum resume size in bytes. Default: 5MB.
	MaxSize int64
	// AllowPrivateNetworks disables the private-IP checks. This MUST only be
	// set to true in test environments.
	AllowPrivateNetworks bool
}

// Fetcher retrieves resumes referenced by URL, for callers that link a hosted
// resume instead of uploading one. Fetched URLs are resolved and rejected if
// they land on private network addresses, including via redirects.
type Fetcher struct {
	client               *http.Client
	maxSize              int64
	allowPrivateNetworks bool
}

// NewFetcher creates a new Fetcher with the given configuration.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 5 << 20
	}

	f := &Fetcher{
		maxSize:              cfg.MaxSize,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}

	f.client = &http.Client{
		Timeout: cfg.Timeout,
		// Validate each redirect target so an open redirect cannot land the
		// request on an internal address.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrPrivateAddress)
			}
			if !f.allowPrivateNetworks {
				return validateURLNotPrivate(req.URL.String())
			}
			return nil
		},
	}

	return f
}

// validateURLNotPrivate resolves the hostname and rejects private IPs and
// non-HTTP(S) schemes.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPrivateAddress, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrPrivateAddress, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrFetchFailed, host, err)
	}
	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			continue
		}
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsUnspecified() ||
			ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return fmt.Errorf("%w: %s resolves to %s", ErrPrivateAddress, host, ipStr)
		}
	}
	return nil
}

// Fetch retrieves the resume at the given URL.
// Returns ErrNotText if the Content-Type is not textual.
// Returns ErrTooLarge if the response exceeds MaxSize.
// Returns ErrPrivateAddress if the URL resolves to a private network address.
// Returns ErrFetchFailed wrapped with the HTTP status for non-2xx responses.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !f.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrFetchFailed, resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.HasPrefix(contentType, "text/") {
		return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotText, contentType)
	}

	// Read one extra byte to detect an oversized body.
	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetchFailed, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, f.maxSize)
	}

	return content, nil
}
