// Package future provides a minimal one-shot completion handle.
//
// A Future is settled exactly once, by Resolve or Reject, and can be waited
// on by any number of goroutines through Done or Wait. Signal is the
// value-less form used for start, write and close completions in the stream
// package.
//
//	s := future.Go(ctx, func(ctx context.Context) error {
//	    return flush(ctx)
//	})
//	if _, err := s.Wait(ctx); err != nil {
//	    ...
//	}
package future
