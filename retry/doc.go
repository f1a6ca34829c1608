// Package retry implements the exponential backoff policy shared by the
// fetch workers.
//
// Delays grow as BaseDelay * 2^(attempt-1), are capped at MaxDelay, and get
// up to MaxJitter of random jitter so that workers hitting the same limit do
// not retry in lockstep:
//
//	p := retry.Policy{BaseDelay: 800 * time.Millisecond}
//	page, err := retry.Do(ctx, p, func(ctx context.Context, attempt int) ([]model.City, error) {
//	    return fetchPage(ctx, offset)
//	})
//
// Rate-limit errors (HTTP 429) are special: they are always retryable and
// never surface as a failure.
package retry
