package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/resilience"
)

var (
	ErrUnsupportedURL = errors.New("only http and https URLs can be fetched")
	ErrBlockedAddress = fmt.Errorf("%w: address is not public", ErrUnsupportedURL)
	ErrTooLarge       = errors.New("remote file too large")
	ErrUnavailable    = errors.New("remote host unavailable")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598)
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// StatusError reports a non-2xx response
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned %d %s", e.Code, http.StatusText(e.Code))
}

// Config tunes the client
type Config struct {
	Timeout      time.Duration // Whole request including retries
	MaxBytes     int64
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RPS          float64 // Outbound request rate; 0 is unlimited
	UserAgent    string
	AllowPrivate bool // Permit loopback, private and link-local addresses
}

// DefaultConfig returns the client defaults
func DefaultConfig() Config {
	return Config{
		Timeout:      15 * time.Second,
		MaxBytes:     10 << 20,
		Retries:      3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		RPS:          5,
		UserAgent:    "CodeCanvas-Import/1.0",
	}
}

// Client downloads remote project archives. Transient failures are retried
// by the transport; repeated failures open a breaker that rejects further
// fetches for a while.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	config  Config
}

// NewClient creates a fetch client
func NewClient(config Config) *Client {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = defaults.MaxBytes
	}
	if config.RetryWaitMin <= 0 {
		config.RetryWaitMin = defaults.RetryWaitMin
	}
	if config.RetryWaitMax < config.RetryWaitMin {
		config.RetryWaitMax = config.RetryWaitMin
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.Retries
	retryClient.RetryWaitMin = config.RetryWaitMin
	retryClient.RetryWaitMax = config.RetryWaitMax
	retryClient.Logger = nil
	// Hand the last response back instead of an error so status codes survive
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if errors.Is(err, ErrBlockedAddress) {
			return false, err
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if !config.AllowPrivate {
		// Every dial is checked after DNS resolution, redirects included
		if transport, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			dialer := &net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
				Control:   guardDial,
			}
			transport.DialContext = dialer.DialContext
			transport.Proxy = nil
		}
	}

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(config.Timeout).
		SetDoNotParseResponse(true).
		SetHeader("User-Agent", config.UserAgent)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RPS), max(1, int(config.RPS)))
	}

	breaker := resilience.New("fetch", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 404 means the URL is wrong, not that the host is down
		IsFailure: func(err error) bool {
			if err == nil {
				return false
			}
			var status *StatusError
			if errors.As(err, &status) {
				return status.Code >= 500
			}
			return !errors.Is(err, ErrTooLarge) && !errors.Is(err, ErrUnsupportedURL)
		},
	})

	return &Client{
		resty:   restyClient,
		limiter: limiter,
		breaker: breaker,
		config:  config,
	}
}

// Fetch downloads rawURL, refusing bodies over MaxBytes
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	if addr, err := netip.ParseAddr(u.Hostname()); err == nil && !c.config.AllowPrivate {
		if err := checkAddr(addr); err != nil {
			return nil, err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var body []byte
	err = c.breaker.Do(func() error {
		resp, err := c.resty.R().SetContext(ctx).Get(u.String())
		if err != nil {
			return fmt.Errorf("fetch %s: %w", u.Redacted(), err)
		}
		raw := resp.RawBody()
		defer raw.Close()

		if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
			return &StatusError{Code: resp.StatusCode()}
		}
		if resp.RawResponse.ContentLength > c.config.MaxBytes {
			return fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.RawResponse.ContentLength)
		}

		body, err = io.ReadAll(io.LimitReader(raw, c.config.MaxBytes+1))
		if err != nil {
			return fmt.Errorf("read %s: %w", u.Redacted(), err)
		}
		if int64(len(body)) > c.config.MaxBytes {
			return fmt.Errorf("%w: over %d bytes", ErrTooLarge, c.config.MaxBytes)
		}
		return nil
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// guardDial refuses connections to non-public addresses
func guardDial(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return checkAddr(ap.Addr())
}

// checkAddr rejects loopback, private, link-local (cloud metadata
// included), multicast, unspecified and shared addresses
func checkAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		addr.IsUnspecified(),
		sharedAddressSpace.Contains(addr):
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

// State reports the breaker state
func (c *Client) State() resilience.State {
	return c.breaker.State()
}
