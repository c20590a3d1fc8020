// Package google implements scraper.Source on top of the Google autocomplete
// endpoint used by the Firefox search bar.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"suggestguard/scraper"
)

const (
	DefaultEndpoint  = "https://www.google.com/complete/search"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes = 1 << 20
)

var errEmptyQuery = errors.New("empty query")

// Config configures a Client.
type Config struct {
	Endpoint   string
	Language   string
	Country    string
	UserAgent  string
	HTTPClient *http.Client
}

// Client fetches suggestions over plain HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = "tr"
	}
	if cfg.Country == "" {
		cfg.Country = "TR"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, http: hc}
}

// BuildURL returns the request URL for query.
func BuildURL(endpoint, query, language, country string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client", "firefox")
	q.Set("hl", language)
	q.Set("gl", country)
	q.Set("ie", "utf-8")
	q.Set("oe", "utf-8")
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch implements scraper.Source.
func (c *Client) Fetch(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, errEmptyQuery)
	}

	target, err := BuildURL(c.cfg.Endpoint, query, c.cfg.Language, c.cfg.Country)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, 0, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindTransient, query, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, scraper.NewFetchError(scraper.KindRateLimited, query, resp.StatusCode, errors.New("too many requests"))
	case resp.StatusCode >= http.StatusInternalServerError:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, scraper.NewFetchError(scraper.KindTransient, query, resp.StatusCode, errors.New("server error"))
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, resp.StatusCode, errors.New("unexpected status"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindTransient, query, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	body, err = decodeCharset(resp.Header.Get("Content-Type"), body)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, resp.StatusCode, err)
	}

	suggestions, err := DecodeSuggestions(body)
	if err != nil {
		return nil, scraper.NewFetchError(scraper.KindPermanent, query, resp.StatusCode, err)
	}
	return suggestions, nil
}

// DecodeSuggestions parses the Firefox-style payload `[query, [s1, s2, ...], ...]`.
// A well-formed array with fewer than two elements yields no suggestions.
func DecodeSuggestions(body []byte) ([]string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	if len(payload) < 2 {
		return []string{}, nil
	}

	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestion list: %w", err)
	}
	return suggestions, nil
}

// decodeCharset converts body to UTF-8 when the response declares another
// charset (Google answers hl=tr requests in ISO-8859-9 unless told otherwise).
func decodeCharset(contentType string, body []byte) ([]byte, error) {
	if contentType == "" {
		return body, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body, nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", cs, err)
	}
	return out, nil
}
