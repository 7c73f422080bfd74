package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	defaultFetchTimeout = 20 * time.Second
	maxPageBytes        = 10 << 20
)

var ErrForbiddenAddress = errors.New("destination address is not allowed")

//nolint:gochecknoglobals // Read-only.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Loader builds document contexts, either by fetching a URL or from HTML the
// caller already has.
type Loader struct {
	client *http.Client
	log    *slog.Logger
}

type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	allowPrivateNetworks bool
}

// WithPrivateNetworks lets the loader fetch loopback, private and link-local
// addresses. Only local tools should use it.
func WithPrivateNetworks() LoaderOption {
	return func(o *loaderOptions) {
		o.allowPrivateNetworks = true
	}
}

func NewLoader(timeout time.Duration, log *slog.Logger, opts ...LoaderOption) *Loader {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	var o loaderOptions
	for _, opt := range opts {
		opt(&o)
	}

	client := &http.Client{Timeout: timeout}
	if !o.allowPrivateNetworks {
		client.Transport = publicTransport()
	}

	return &Loader{
		client: client,
		log:    log,
	}
}

// publicTransport checks every dialed address, redirects included. Proxies
// are not used since the proxy address would be the one checked.
func publicTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   refusePrivateAddress,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Documented type.
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return transport
}

func refusePrivateAddress(_ string, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("split host port: %w", err)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}

	if !publicAddress(addr) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, addr)
	}

	return nil
}

func publicAddress(addr netip.Addr) bool {
	addr = addr.Unmap()

	return addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!sharedAddressSpace.Contains(addr)
}

// ParseTargetURL accepts absolute http(s) URLs only.
func ParseTargetURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("URL is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q (only http/https allowed)", u.Scheme)
	}

	if u.Host == "" {
		return nil, errors.New("URL host is empty")
	}

	return u, nil
}

func (l *Loader) Load(
	ctx context.Context,
	rawURL string,
	selection string,
) (DocumentContext, error) {
	u, err := ParseTargetURL(rawURL)
	if err != nil {
		return DocumentContext{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return DocumentContext{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req) //nolint:gosec // User-supplied page URL is the whole point.
	if err != nil {
		return DocumentContext{}, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			l.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", u.String(),
				"operation", "Load")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return DocumentContext{}, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return DocumentContext{}, fmt.Errorf("read body: %w", err)
	}

	// Redirects may land on another host, which matters for the site rules.
	if resp.Request != nil && resp.Request.URL != nil {
		u = resp.Request.URL
	}

	return l.build(u, resp.Header.Get("Content-Type"), body, selection)
}

// FromHTML builds a context from a page the caller already rendered.
func (l *Loader) FromHTML(rawURL string, html string, selection string) (DocumentContext, error) {
	var u *url.URL
	if strings.TrimSpace(rawURL) != "" {
		parsed, err := ParseTargetURL(rawURL)
		if err != nil {
			return DocumentContext{}, err
		}
		u = parsed
	}

	return l.build(u, "text/html; charset=utf-8", []byte(html), selection)
}

func (l *Loader) build(
	u *url.URL,
	contentType string,
	body []byte,
	selection string,
) (DocumentContext, error) {
	dc := DocumentContext{
		URL:         u,
		Selection:   selection,
		ContentType: contentType,
		Body:        body,
	}

	if isPDFContentType(contentType) || len(bytes.TrimSpace(body)) == 0 {
		return dc, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return DocumentContext{}, fmt.Errorf("create document from reader: %w", err)
	}
	dc.Document = doc

	return dc, nil
}

func stripTags(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	return doc.Text()
}
