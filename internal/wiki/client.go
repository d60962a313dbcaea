// Package wiki talks to the encyclopedia API: prefix search over page titles
// and page summary retrieval.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aryannaik/pick/internal/candidate"
	"github.com/aryannaik/pick/internal/logger"
	"github.com/aryannaik/pick/internal/metrics"
)

const (
	DefaultAPIURL     = "https://en.wikipedia.org/w/api.php"
	DefaultSummaryURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"
	DefaultUserAgent  = "pick/1.0 (https://github.com/aryannaik/pick)"

	// NoLimit asks the API for as many titles as it will return.
	NoLimit = 0

	maxBodyBytes = 4 << 20
)

// ErrEmptyTitle is returned when a summary is requested for an untitled page.
var ErrEmptyTitle = errors.New("page title is empty")

// Config configures a Client.
type Config struct {
	APIURL     string
	SummaryURL string
	UserAgent  string
	Timeout    time.Duration
}

// Client performs stateless lookups; concurrent calls are independent.
type Client struct {
	apiURL     string
	summaryURL string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        logger.Logger
}

func NewClient(cfg Config, m *metrics.Metrics, log logger.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.SummaryURL == "" {
		cfg.SummaryURL = DefaultSummaryURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     cfg.APIURL,
		summaryURL: strings.TrimSuffix(cfg.SummaryURL, "/") + "/",
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		metrics: m,
		log:     log,
	}
}

// SearchTitles lists up to limit page titles starting at prefix. A limit of
// NoLimit (or less) requests the API maximum.
func (c *Client) SearchTitles(ctx context.Context, prefix string, limit int) (pages []candidate.Page, err error) {
	const op = "search titles"
	started := time.Now()
	defer func() { c.metrics.ObserveLookup("search", started, err) }()

	aplimit := "max"
	if limit > NoLimit {
		aplimit = strconv.Itoa(limit)
	}
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("list", "allpages")
	q.Set("aplimit", aplimit)
	q.Set("apfrom", prefix)
	endpoint := c.apiURL + "?" + q.Encode()

	c.log.Debug("Searching titles", logger.String("prefix", prefix), logger.String("aplimit", aplimit))

	var resp searchResponse
	if err := c.getJSON(ctx, op, endpoint, &resp); err != nil {
		return nil, err
	}
	pages, err = resp.pages()
	if err != nil {
		return nil, decodeError(op, err)
	}
	return pages, nil
}

// FetchSummary retrieves the summary for page, following redirects.
func (c *Client) FetchSummary(ctx context.Context, page candidate.Page) (s candidate.Summary, err error) {
	const op = "fetch summary"
	started := time.Now()
	defer func() { c.metrics.ObserveLookup("summary", started, err) }()

	if page.Title == "" {
		return candidate.Summary{}, fmt.Errorf("%s: %w", op, ErrEmptyTitle)
	}
	slug, err := page.Slug()
	if err != nil {
		return candidate.Summary{}, fmt.Errorf("%s: %w", op, err)
	}
	endpoint := c.summaryURL + slug + "?redirect=true"

	c.log.Debug("Fetching summary", logger.String("title", page.Title), logger.String("slug", slug))

	var resp summaryResponse
	if err := c.getJSON(ctx, op, endpoint, &resp); err != nil {
		return candidate.Summary{}, err
	}
	s, err = resp.summary()
	if err != nil {
		return candidate.Summary{}, decodeError(op, err)
	}
	return s, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return networkError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return statusError(op, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return decodeError(op, err)
	}
	return nil
}
