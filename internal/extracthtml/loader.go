package extracthtml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"banketl/internal/metrics"
)

// Input describes where HTML should come from. Path wins over URL, URL
// wins over Stdin.
type Input struct {
	// Path, if provided, is read from the local filesystem (offline runs).
	Path string

	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Stdin is used when URL and Path are empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads HTML with a consistent timeout policy.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
	}
}

// Load returns the HTML source for the given input.
//
// Every failure to obtain content is a *FetchError. On non-2xx HTTP responses
// the error includes the status code and up to 4KB of the response body.
// Bodies declared in a non-UTF-8 charset are decoded to UTF-8.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	switch {
	case strings.TrimSpace(input.Path) != "":
		b, err := os.ReadFile(input.Path)
		if err != nil {
			return "", &FetchError{URL: input.Path, Err: err}
		}
		return string(b), nil

	case strings.TrimSpace(input.URL) != "":
		return l.fetch(ctx, input.URL)

	default:
		if input.Stdin == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", &FetchError{URL: "stdin", Err: fmt.Errorf("read stdin: %w", err)}
		}
		return string(b), nil
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", "banketl/1.0")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		observeHTTP("error", start, 0)
		return "", &FetchError{URL: url, Err: fmt.Errorf("http get: %w", err)}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		observeHTTP(status, start, len(body))
		return "", &FetchError{
			URL:    url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	b, err := io.ReadAll(resp.Body)
	observeHTTP(status, start, len(b))
	if err != nil {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	html, err := decodeCharset(b, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: url, Status: resp.StatusCode, Err: err}
	}
	return html, nil
}

// decodeCharset converts body to UTF-8 using the charset parameter of
// contentType. A missing, unknown or UTF-8 charset returns body unchanged.
func decodeCharset(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(body), nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return string(body), nil
	}
	out, err := io.ReadAll(enc.NewDecoder().Reader(bytes.NewReader(body)))
	if err != nil {
		return "", fmt.Errorf("decode charset %s: %w", cs, err)
	}
	return string(out), nil
}

func observeHTTP(status string, start time.Time, n int) {
	l := metrics.Labels{"status": status}
	metrics.IncCounter(metrics.HTTPRequestsTotal, 1, l)
	metrics.ObserveHistogram(metrics.HTTPRequestDurationSeconds, time.Since(start).Seconds(), l)
	if n > 0 {
		metrics.ObserveHistogram(metrics.HTTPDownloadBytes, float64(n), l)
	}
}
