// SPDX-License-Identifier: MPL-2.0

package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/docker/go-units"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Spanfile/Modtorio-sub000/internal/metrics"
)

const (
	// DefaultBaseURL is the public Factorio mod portal.
	DefaultBaseURL = "https://mods.factorio.com"

	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "modtorio"

	// maxJSONResponseBytes bounds metadata responses (10 MB).
	maxJSONResponseBytes = 10 << 20

	// maxPages bounds batch pagination.
	maxPages = 50

	// defaultMaxRetries is how many times a transient failure is retried.
	defaultMaxRetries = 4

	tracerName = "github.com/Spanfile/Modtorio-sub000/internal/portal"
)

type (
	// Client talks to the mod portal. It is safe for concurrent use.
	Client struct {
		httpClient *http.Client
		baseURL    string
		username   string
		token      string
		userAgent  string
		logger     *log.Logger
		newBackOff func() backoff.BackOff
		metrics    *metrics.Metrics
		tracer     trace.Tracer
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the portal base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithCredentials sets the username and token used to download archives.
func WithCredentials(username, token string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l.WithPrefix("portal")
	}
}

// WithBackOff replaces the retry policy. newBackOff is called once per
// request so stateful policies start fresh each time.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// WithMetrics records request outcomes in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client against DefaultBaseURL unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		logger:     log.New(io.Discard),
		newBackOff: defaultBackOff,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, defaultMaxRetries)
}

// FetchMod fetches the full metadata of a single mod.
// Returns ErrNotFound if the portal does not know the mod.
func (c *Client) FetchMod(ctx context.Context, name string) (_ *Metadata, err error) {
	ctx, span := c.startSpan(ctx, "portal.FetchMod", attribute.String("mod.name", name))
	defer func() { c.finish(span, "fetch_mod", err) }()

	reqURL := fmt.Sprintf("%s/api/mods/%s/full", c.baseURL, url.PathEscape(name))
	c.logger.Debug("fetching mod metadata", "name", name)

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("fetching mod %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("mod %s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetching mod " + name, URL: redactURL(reqURL), StatusCode: resp.StatusCode}
	}

	var wm wireMod
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&wm); err != nil {
		return nil, fmt.Errorf("fetching mod %s: decoding response: %w", name, err)
	}

	meta := toMetadata(wm)
	return &meta, nil
}

// FetchBatch fetches the metadata of many mods, following pagination until
// every name is accounted for or the portal reports no further pages. Names
// the portal does not know are simply absent from the result.
func (c *Client) FetchBatch(ctx context.Context, names []string) (_ []Metadata, err error) {
	ctx, span := c.startSpan(ctx, "portal.FetchBatch", attribute.Int("mod.count", len(names)))
	defer func() { c.finish(span, "fetch_batch", err) }()

	if len(names) == 0 {
		return nil, nil
	}

	all := make([]Metadata, 0, len(names))
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("full", "True")
		q.Set("page_size", "max")
		q.Set("namelist", strings.Join(names, ","))
		q.Set("page", strconv.Itoa(page))
		reqURL := c.baseURL + "/api/mods?" + q.Encode()

		c.logger.Debug("fetching mod batch", "names", len(names), "page", page)

		wp, err := c.fetchPage(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("fetching mod batch page %d: %w", page, err)
		}

		for _, wm := range wp.Results {
			all = append(all, toMetadata(wm))
		}

		if len(all) >= len(names) || wp.Pagination == nil || wp.Pagination.Links.Next == nil {
			break
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, reqURL string) (*wirePage, error) {
	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetching mod batch", URL: redactURL(reqURL), StatusCode: resp.StatusCode}
	}

	var wp wirePage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&wp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &wp, nil
}

// Download fetches the archive of the release identified by locator into
// destDir. The file is named after the last path segment of the final
// response URL, falling back to fileName. It returns the written path and its
// size in bytes.
func (c *Client) Download(ctx context.Context, name, locator, fileName, destDir string) (_ string, _ int64, err error) {
	ctx, span := c.startSpan(ctx, "portal.Download",
		attribute.String("mod.name", name), attribute.String("mod.locator", locator))
	defer func() { c.finish(span, "download", err) }()

	if c.username == "" || c.token == "" {
		return "", 0, ErrMissingCredentials
	}

	q := url.Values{}
	q.Set("username", c.username)
	q.Set("token", c.token)
	reqURL := fmt.Sprintf("%s/download/%s/%s?%s", c.baseURL, url.PathEscape(name), url.PathEscape(locator), q.Encode())

	c.logger.Debug("downloading mod", "name", name, "locator", locator)

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return "", 0, fmt.Errorf("downloading %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode == http.StatusNotFound {
		return "", 0, fmt.Errorf("release %s of %s: %w", locator, name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, &StatusError{Op: "downloading " + name, URL: redactURL(reqURL), StatusCode: resp.StatusCode}
	}

	target := filepath.Join(destDir, downloadFileName(resp, fileName))
	n, err := writeAtomically(target, resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("downloading %s: %w", name, err)
	}

	c.logger.Info("downloaded mod", "name", name, "file", filepath.Base(target), "size", units.HumanSize(float64(n)))
	span.SetAttributes(attribute.Int64("download.bytes", n))
	return target, n, nil
}

// downloadFileName picks the last segment of the final (post-redirect) URL.
// Segments that are not zip archive names, such as the bare locator when
// the portal serves the bytes itself, fall back to the release file name.
func downloadFileName(resp *http.Response, fallback string) string {
	if resp.Request != nil && resp.Request.URL != nil {
		name := path.Base(resp.Request.URL.Path)
		if strings.HasSuffix(name, ".zip") && name != ".zip" {
			return name
		}
	}
	return filepath.Base(fallback)
}

func writeAtomically(target string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".modtorio-*.part")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("writing archive: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("moving archive into place: %w", err)
	}
	return n, nil
}

// get performs a GET, retrying transport errors, 5xx and 429 responses.
// Any other response is returned to the caller unread.
func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	b := backoff.WithContext(c.newBackOff(), ctx)

	return backoff.RetryWithData(func() (*http.Response, error) {
		resp, err := c.doRequest(ctx, http.MethodGet, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			c.logger.Debug("request failed, retrying", "url", redactURL(reqURL), "err", err)
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJSONResponseBytes))
			_ = resp.Body.Close()
			c.logger.Debug("transient response, retrying", "url", redactURL(reqURL), "status", resp.StatusCode)
			return nil, &StatusError{Op: "GET", URL: redactURL(reqURL), StatusCode: resp.StatusCode}
		}

		return resp, nil
	}, b)
}

func (c *Client) doRequest(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (c *Client) finish(span trace.Span, op string, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.metrics.PortalRequest(op, metrics.OutcomeFailure)
		return
	}
	c.metrics.PortalRequest(op, metrics.OutcomeSuccess)
}

// redactURL strips query parameters so credentials never reach logs or errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// IsNotFound reports whether err means the portal does not know the mod.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
