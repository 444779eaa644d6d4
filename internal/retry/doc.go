// Package retry runs an operation with bounded attempts and randomized,
// cancellable backoff.
//
// A Policy allows MaxRetries+1 attempts in total. Between attempts it sleeps a
// uniformly random delay in [MinDelay, MaxDelay]. If the context is cancelled
// before an attempt or during a sleep, Do returns ErrCancelled at once and makes
// no further attempts. Errors wrapped with Permanent are returned without retry.
//
//	p := retry.Policy{MaxRetries: 3, MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
//	page, attempts, err := retry.Execute(ctx, p, func(ctx context.Context) (*model.SearchPage, error) {
//		return backend.Search(ctx, keyword, 2)
//	})
package retry
