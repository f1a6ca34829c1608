package testutil

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/hupe1980/geocluster/model"
	"github.com/hupe1980/geocluster/source"
)

// Failure scripts the errors returned for one offset before data is served.
type Failure struct {
	// Errors are returned in order, one per call.
	Errors []error

	// Forever makes the last error repeat instead of eventually serving data.
	Forever bool
}

// RateLimited returns a Failure of n consecutive HTTP 429 responses.
func RateLimited(n int) Failure {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = source.NewStatusError(http.StatusTooManyRequests)
	}
	return Failure{Errors: errs}
}

// Permanent returns a Failure that always fails with err.
func Permanent(err error) Failure {
	return Failure{Errors: []error{err}, Forever: true}
}

// Call is one recorded FindCities invocation.
type Call struct {
	Query source.Query
	Err   error
}

// Source is an in-memory source.Source with scripted failures.
// It is safe for concurrent use.
type Source struct {
	data []model.City

	mu       sync.Mutex
	failures map[int]*failureState
	calls    []Call
	hook     func(ctx context.Context, q source.Query) error
}

type failureState struct {
	Failure
	served int
}

// NewSource creates a Source serving data sorted as given.
func NewSource(data []model.City) *Source {
	return &Source{data: data, failures: map[int]*failureState{}}
}

// FailOffset scripts failures for requests at offset.
func (s *Source) FailOffset(offset int, f Failure) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[offset] = &failureState{Failure: f}
	return s
}

// OnRequest installs a hook run before every request. A non-nil error is
// returned to the caller.
func (s *Source) OnRequest(fn func(ctx context.Context, q source.Query) error) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
	return s
}

// Factory returns a source.Factory serving s.
func (s *Source) Factory() source.Factory {
	return source.Static(s)
}

// FindCities implements source.Source.
func (s *Source) FindCities(ctx context.Context, q source.Query) (source.Page, error) {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, q); err != nil {
			s.record(q, err)
			return source.Page{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return source.Page{}, err
	}

	s.mu.Lock()
	if f, ok := s.failures[q.Offset]; ok && len(f.Errors) > 0 {
		if f.served < len(f.Errors) || f.Forever {
			err := f.Errors[min(f.served, len(f.Errors)-1)]
			f.served++
			s.calls = append(s.calls, Call{Query: q, Err: err})
			s.mu.Unlock()
			return source.Page{}, err
		}
	}
	s.calls = append(s.calls, Call{Query: q})
	s.mu.Unlock()

	if q.Offset < 0 || q.Limit < 0 {
		return source.Page{}, source.NewStatusError(http.StatusBadRequest)
	}
	start := min(q.Offset, len(s.data))
	end := min(q.Offset+q.Limit, len(s.data))
	page := make([]model.City, end-start)
	copy(page, s.data[start:end])
	return source.Page{Data: page}, nil
}

func (s *Source) record(q source.Query, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Query: q, Err: err})
}

// Calls returns a copy of the recorded calls.
func (s *Source) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Offsets returns the offsets of successful calls in call order.
func (s *Source) Offsets() []int {
	var out []int
	for _, c := range s.Calls() {
		if c.Err == nil {
			out = append(out, c.Query.Offset)
		}
	}
	return out
}

// Attempts returns how many calls were made for offset.
func (s *Source) Attempts(offset int) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Query.Offset == offset {
			n++
		}
	}
	return n
}

// ErrBoom is a generic non-retryable test failure.
var ErrBoom = errors.New("boom")
