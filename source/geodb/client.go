// Package geodb implements source.Source against the GeoDB Cities API
// (RapidAPI flavour).
package geodb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/source"
)

const (
	// DefaultBaseURL is the public RapidAPI endpoint.
	DefaultBaseURL = "https://wft-geo-db.p.rapidapi.com/v1"

	// DefaultHost is sent as X-RapidAPI-Host.
	DefaultHost = "wft-geo-db.p.rapidapi.com"

	citiesPath = "/geo/cities"

	// maxErrorBody bounds how much of an error response is kept in the message.
	maxErrorBody = 512
)

// Client queries GeoDB for pages of cities. It is safe for concurrent use.
type Client struct {
	baseURL string
	host    string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a Client. Empty credential fields fall back to the defaults.
func New(creds source.Credentials, optFns ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(creds.BaseURL, "/"),
		host:    creds.Host,
		apiKey:  creds.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.host == "" {
		c.host = DefaultHost
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Factory is a source.Factory building GeoDB clients.
func Factory(optFns ...Option) source.Factory {
	return func(creds source.Credentials) (source.Source, error) {
		return New(creds, optFns...), nil
	}
}

// FindCities fetches one page of cities.
func (c *Client) FindCities(ctx context.Context, q source.Query) (source.Page, error) {
	u, err := url.Parse(c.baseURL + citiesPath)
	if err != nil {
		return source.Page{}, fmt.Errorf("geodb: parse base url: %w", err)
	}
	params := u.Query()
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return source.Page{}, fmt.Errorf("geodb: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return source.Page{}, ctx.Err()
		}
		return source.Page{}, fmt.Errorf("geodb: %w: %w", core.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return source.Page{}, &source.StatusError{Code: resp.StatusCode, Message: msg}
	}

	var page source.Page
	if err := gojson.NewDecoder(resp.Body).DecodeContext(ctx, &page); err != nil {
		return source.Page{}, fmt.Errorf("geodb: decode page at offset %d: %w", q.Offset, err)
	}
	return page, nil
}
