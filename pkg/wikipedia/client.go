// Package wikipedia fetches historical context from the public
// Wikipedia REST and OpenSearch APIs. No API key is required.
package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/darkroomhq/darkroom/pkg/types"
)

const defaultBaseURL = "https://en.wikipedia.org"

// ErrPageNotFound indicates no page exists for the requested title.
var ErrPageNotFound = errors.New("wikipedia page not found")

// Page is a fetched page summary.
type Page struct {
	Title   string
	Extract string
	URL     string
}

// ContextBundle aggregates the pages fetched for one analysis run.
type ContextBundle struct {
	CombinedText string
	RelatedPages []types.WikipediaLink
}

// Client calls the Wikipedia APIs.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// NewClient creates a Wikipedia client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: "Darkroom Photo Restoration (github.com/darkroomhq/darkroom)",
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PageSummary fetches a single page summary by title.
func (c *Client) PageSummary(ctx context.Context, title string) (*Page, error) {
	u := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		c.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")))

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, title)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia API returned status %d", resp.StatusCode)
	}

	var summary struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if summary.Extract == "" {
		return nil, fmt.Errorf("%w: %s has no extract", ErrPageNotFound, title)
	}

	return &Page{
		Title:   summary.Title,
		Extract: summary.Extract,
		URL:     summary.ContentURLs.Desktop.Page,
	}, nil
}

// FetchContext fetches historical context for a location, trying the
// location page itself and then its "History of" page.
func (c *Client) FetchContext(ctx context.Context, location, era string) (*Page, error) {
	cleaned := cleanLocation(location)

	var lastErr error
	for _, term := range []string{cleaned, "History of " + cleaned} {
		page, err := c.PageSummary(ctx, term)
		if err != nil {
			lastErr = err
			continue
		}

		text := fmt.Sprintf("Historical context for %s during %s: %s", cleaned, era, page.Extract)
		text = truncate(text, 1000)
		return &Page{Title: page.Title, Extract: text, URL: page.URL}, nil
	}
	return nil, lastErr
}

// RelatedPages finds up to three historically relevant page titles for
// a location and era using the OpenSearch API.
func (c *Client) RelatedPages(ctx context.Context, location, era string) ([]string, error) {
	cleaned := cleanLocation(location)
	queries := []string{
		cleaned + " " + era,
		era + " " + cleaned,
		"History of " + cleaned,
	}

	var titles []string
	for _, query := range queries {
		found, err := c.openSearch(ctx, query)
		if err != nil {
			continue
		}
		for _, title := range found {
			if !relevantTitle(title, cleaned, era) {
				continue
			}
			if containsTitle(titles, title) {
				continue
			}
			titles = append(titles, title)
			if len(titles) >= 3 {
				return titles, nil
			}
		}
	}
	return titles, nil
}

// FetchMultiple fetches the location page plus topic pages and builds a
// combined context text, capped at 2000 characters.
func (c *Client) FetchMultiple(ctx context.Context, location, era string, topics []string) (*ContextBundle, error) {
	bundle := &ContextBundle{}
	var combined strings.Builder

	if page, err := c.FetchContext(ctx, location, era); err == nil {
		bundle.RelatedPages = append(bundle.RelatedPages, types.WikipediaLink{
			Title: page.Title, URL: page.URL, Type: "location",
		})
		combined.WriteString(page.Extract)
		combined.WriteString("\n\n")
	}

	for _, topic := range topics {
		page, err := c.PageSummary(ctx, topic)
		if err != nil {
			continue
		}
		bundle.RelatedPages = append(bundle.RelatedPages, types.WikipediaLink{
			Title: page.Title, URL: page.URL, Type: "topic",
		})
		combined.WriteString(fmt.Sprintf("Context about %s: %s\n\n", topic, truncate(page.Extract, 500)))
	}

	if combined.Len() == 0 && len(bundle.RelatedPages) == 0 {
		return nil, fmt.Errorf("no wikipedia context found for %q", location)
	}

	bundle.CombinedText = truncate(combined.String(), 2000)
	return bundle, nil
}

// truncate caps a string at max runes. Byte slicing would split
// multi-byte characters, common in extracts for non-English locations.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func (c *Client) openSearch(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", "8")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia API returned status %d", resp.StatusCode)
	}

	// OpenSearch responses are positional arrays: [query, titles, descriptions, urls].
	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("unexpected opensearch response shape")
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("decoding titles: %w", err)
	}
	return titles, nil
}

// cleanLocation strips country suffixes and surrounding whitespace from
// a user-supplied location ("Shanghai, China" -> "Shanghai").
func cleanLocation(location string) string {
	if i := strings.Index(location, ","); i >= 0 {
		location = location[:i]
	}
	return strings.TrimSpace(location)
}

var skipKeywords = []string{
	"olympics", "paralympics", "sport", "football", "basketball",
	"baseball", "soccer", "championship", "tournament",
}

var historicalKeywords = []string{"war", "movement", "revolution", "period", "era", "decade"}

// relevantTitle filters OpenSearch results down to historically useful
// pages, dropping the location itself, disambiguations and sports pages.
func relevantTitle(title, location, era string) bool {
	lower := strings.ToLower(title)
	locationLower := strings.ToLower(location)

	if lower == locationLower || strings.Contains(lower, "disambiguation") {
		return false
	}
	for _, kw := range skipKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	if strings.Contains(lower, "history") || strings.Contains(lower, strings.ToLower(era)) ||
		strings.Contains(lower, locationLower) {
		return true
	}
	for _, kw := range historicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsTitle(titles []string, title string) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}
