package geodb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hupe1980/geocluster/core"
	"github.com/hupe1980/geocluster/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FindCities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/geo/cities", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "name", r.URL.Query().Get("sort"))
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "example.test", r.Header.Get("X-RapidAPI-Host"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Aachen","country":"Germany","latitude":50.77,"longitude":6.08,"population":249070}],"metadata":{"totalCount":1}}`))
	}))
	defer srv.Close()

	c := New(source.Credentials{BaseURL: srv.URL + "/v1/", Host: "example.test", APIKey: "secret"})
	page, err := c.FindCities(context.Background(), source.Query{Offset: 20, Limit: 10, Sort: "name"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Aachen", page.Data[0].Name)
	assert.Equal(t, 249070.0, page.Data[0].Population.Float())
}

func TestClient_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"You have exceeded the rate limit per second for your plan"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(source.Credentials{BaseURL: srv.URL})

	_, err := c.FindCities(context.Background(), source.Query{Offset: 0, Limit: 10})
	require.Error(t, err)
	var se *source.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Contains(t, se.Message, "rate limit")
	assert.ErrorIs(t, err, core.ErrRateLimited)

	_, err = c.FindCities(context.Background(), source.Query{Offset: 10, Limit: 10})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, "Forbidden", se.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(source.Credentials{BaseURL: url})
	_, err := c.FindCities(context.Background(), source.Query{Limit: 1})
	assert.ErrorIs(t, err, core.ErrTransientNetwork)
}

func TestNew_Defaults(t *testing.T) {
	c := New(source.Credentials{})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultHost, c.host)

	src, err := Factory(WithHTTPClient(http.DefaultClient))(source.Credentials{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", src.(*Client).apiKey)
	assert.Same(t, http.DefaultClient, src.(*Client).http)
}
