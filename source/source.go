// Package source defines the paginated upstream city data source.
//
// The engines only depend on the Source interface; the geodb subpackage
// implements it against the GeoDB Cities HTTP API.
package source

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/model"
)

// DefaultSort is the sort key used by the bulk loader.
const DefaultSort = "name"

// Query selects one page of cities.
type Query struct {
	Offset int
	Limit  int
	Sort   string
}

// Page is one page of upstream results.
type Page struct {
	Data []model.City `json:"data"`
}

// Source is a paginated city query interface.
//
// Implementations must be safe for concurrent use and return a
// *StatusError for non-2xx responses.
type Source interface {
	FindCities(ctx context.Context, q Query) (Page, error)
}

// Credentials identify the caller to the upstream API.
type Credentials struct {
	BaseURL string `yaml:"base_url"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"api_key"`
}

// Factory builds a Source from credentials. Each fetch worker calls the
// factory once when it starts.
type Factory func(Credentials) (Source, error)

// Static returns a Factory that ignores the credentials and returns src.
func Static(src Source) Factory {
	return func(Credentials) (Source, error) { return src, nil }
}

// StatusError is a failed upstream request carrying an HTTP-like status code.
type StatusError struct {
	Code    int
	Message string
}

// NewStatusError creates a StatusError with the standard status text.
func NewStatusError(code int) *StatusError {
	return &StatusError{Code: code, Message: http.StatusText(code)}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// StatusCode returns the status code.
func (e *StatusError) StatusCode() int { return e.Code }

// Unwrap maps the status onto the error taxonomy: 429 is core.ErrRateLimited,
// 5xx and 408 are core.ErrTransientNetwork.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code == http.StatusTooManyRequests:
		return core.ErrRateLimited
	case e.Code == http.StatusRequestTimeout || e.Code >= 500:
		return core.ErrTransientNetwork
	default:
		return nil
	}
}
