package source

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/geocluster/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusError(t *testing.T) {
	rl := NewStatusError(429)
	assert.Equal(t, "HTTP 429: Too Many Requests", rl.Error())
	assert.Equal(t, 429, rl.StatusCode())
	assert.ErrorIs(t, rl, core.ErrRateLimited)

	assert.ErrorIs(t, NewStatusError(503), core.ErrTransientNetwork)
	assert.ErrorIs(t, NewStatusError(408), core.ErrTransientNetwork)

	nf := NewStatusError(404)
	assert.False(t, errors.Is(nf, core.ErrRateLimited))
	assert.False(t, errors.Is(nf, core.ErrTransientNetwork))

	assert.Equal(t, "HTTP 418", (&StatusError{Code: 418}).Error())
}

type nopSource struct{}

func (nopSource) FindCities(context.Context, Query) (Page, error) { return Page{}, nil }

func TestStatic(t *testing.T) {
	src := nopSource{}
	got, err := Static(src)(Credentials{APIKey: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestPager(t *testing.T) {
	p := Pager{Limit: 10}
	assert.Equal(t, 0, p.Offset(-3))
	assert.Equal(t, 30, p.Offset(3))
	assert.Equal(t, Query{Offset: 20, Limit: 10, Sort: "name"}, p.Query(2))

	assert.Equal(t, 3, p.TotalPages(25))
	assert.Equal(t, 0, p.TotalPages(0))

	assert.Equal(t, 2, p.Clamp(7, 25))
	assert.Equal(t, 0, p.Clamp(-1, 25))
	assert.Equal(t, 0, p.Clamp(4, 0))
}
