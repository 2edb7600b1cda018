// Package fetch implements the crawler's fetcher contract: URL validation
// and a single-GET page download with a configured timeout, user agent, and
// Accept header.
package fetch

import (
	"io"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iparadigms/searchengine/dnscache"
)

var urlRegexp = regexp.MustCompile(`(?i)^(https?://)?([\w-]+\.)+[\w-]+(/[\w\-./?%&=]*)?$`)

// IsValidURL reports whether s is a non-empty URL with an optional
// http/https scheme, at least one dotted authority component, and an
// optional path made of URL-safe characters.
func IsValidURL(s string) bool {
	if s == "" {
		return false
	}
	return urlRegexp.MatchString(s)
}

// Result is the outcome of a download: the HTTP status, the raw body, and
// the verbatim Content-Type header (empty if absent).
type Result struct {
	Status      int
	Body        string
	ContentType string
}

// Fetcher downloads pages on behalf of the crawl engine.
type Fetcher struct {
	client    *http.Client
	userAgent string
	accept    string
	log       *logrus.Entry
}

// Options configures a Fetcher.
type Options struct {
	Timeout            time.Duration
	UserAgent          string
	Accept             string
	MaxDNSCacheEntries int
}

// New builds a Fetcher with a DNS-caching transport, grounded in the
// crawl engine's need to repeatedly hit the same hosts without paying for
// resolution on every request.
func New(opts Options) (*Fetcher, error) {
	if opts.Accept == "" {
		opts.Accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	transport := &http.Transport{
		Dial: (&net.Dialer{
			Timeout: opts.Timeout,
		}).Dial,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	maxEntries := opts.MaxDNSCacheEntries
	if maxEntries <= 0 {
		maxEntries = 2000
	}
	cachedDial, err := dnscache.Dial(transport.Dial, maxEntries)
	if err != nil {
		return nil, err
	}
	transport.Dial = cachedDial

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent: opts.UserAgent,
		accept:    opts.Accept,
		log:       logrus.WithField("component", "fetch"),
	}, nil
}

// Download performs a single GET against url and returns its outcome. On
// transport failure it reports a status >= 400; it never returns a non-nil
// error, since the crawl engine only inspects the status and content-type.
func (f *Fetcher) Download(url string) Result {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		f.log.Debugf("invalid request for %v: %v", url, err)
		return Result{Status: 400}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", f.accept)

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debugf("download failed for %v: %v", url, err)
		return Result{Status: 502}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Debugf("failed reading body for %v: %v", url, err)
		return Result{Status: 502}
	}

	return Result{
		Status:      resp.StatusCode,
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
	}
}
