package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/AnshRaj112/smart-bookmarks-backend/internal/models"
)

const maxRedirects = 10

var errBlockedAddress = errors.New("destination address is not allowed")

// sharedAddressSpace is 100.64.0.0/10 (RFC 6598), which some clouds use for metadata endpoints.
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// LinkChecker probes bookmark URLs with a bounded pool of workers.
type LinkChecker struct {
	client      *http.Client
	concurrency int
}

type linkCheckerOptions struct {
	allowPrivate bool
}

// LinkCheckerOption configures NewLinkChecker.
type LinkCheckerOption func(*linkCheckerOptions)

// AllowPrivateNetworks lets the checker dial loopback, private and link-local addresses.
func AllowPrivateNetworks() LinkCheckerOption {
	return func(o *linkCheckerOptions) { o.allowPrivate = true }
}

// NewLinkChecker builds a checker that by default refuses to connect to any
// non-public address, including after redirects.
func NewLinkChecker(concurrency int, timeout time.Duration, opts ...LinkCheckerOption) *LinkChecker {
	if concurrency <= 0 {
		concurrency = 1
	}
	var o linkCheckerOptions
	for _, opt := range opts {
		opt(&o)
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	if !o.allowPrivate {
		dialer.Control = rejectNonPublic
	}
	transport := &http.Transport{
		// No proxy: the address check must see the real destination.
		Proxy:               nil,
		DialContext:         dialer.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &LinkChecker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		concurrency: concurrency,
	}
}

// rejectNonPublic runs after DNS resolution, on the address actually dialed.
func rejectNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errBlockedAddress
	}
	ip := net.ParseIP(host)
	if ip == nil || !isPublicIP(ip) {
		return errBlockedAddress
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

// Check returns one result per bookmark, in input order.
func (c *LinkChecker) Check(ctx context.Context, bookmarks []models.Bookmark) []models.LinkCheckResult {
	if len(bookmarks) == 0 {
		return []models.LinkCheckResult{}
	}

	results := make([]models.LinkCheckResult, len(bookmarks))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(c.concurrency, len(bookmarks))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = c.checkURL(ctx, &bookmarks[idx])
			}
		}()
	}

	for i := range bookmarks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (c *LinkChecker) checkURL(ctx context.Context, b *models.Bookmark) models.LinkCheckResult {
	result := models.LinkCheckResult{BookmarkID: b.ID, URL: b.URL}

	// HEAD first; some servers reject it so fall back to GET.
	resp, err := c.do(ctx, http.MethodHead, b.URL)
	if errors.Is(err, errBlockedAddress) {
		return blocked(result)
	}
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		if resp != nil {
			resp.Body.Close()
		}
		resp, err = c.do(ctx, http.MethodGet, b.URL)
		if errors.Is(err, errBlockedAddress) {
			return blocked(result)
		}
		if err != nil {
			result.Status = models.LinkUnreachable
			result.Error = normalizeLinkError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	result.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = models.LinkHealthy
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		result.Status = models.LinkDead
	default:
		result.Status = models.LinkUnreachable
		result.Error = http.StatusText(resp.StatusCode)
	}
	return result
}

func blocked(result models.LinkCheckResult) models.LinkCheckResult {
	result.Status = models.LinkBlocked
	result.Error = "Blocked address"
	return result
}

func (c *LinkChecker) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "SmartBookmarks-LinkChecker/1.0")
	return c.client.Do(req)
}

// normalizeLinkError folds verbose transport errors into short categories.
func normalizeLinkError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	default:
		return errStr
	}
}
