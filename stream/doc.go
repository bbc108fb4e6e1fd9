// Package stream provides backpressure-coordinated transform streams.
//
// A Transform joins a Writable input and a Readable output through a
// Transformer. Chunks written to the input are handed to the transform
// algorithm one at a time; the algorithm emits output chunks through its
// Controller. When the output queue reaches its high-water mark, further
// writes wait until a reader makes room, so a slow reader slows the writer
// down without unbounded buffering.
//
// Completion, cancellation and errors travel both ways:
//
//   - closing the input flushes the transformer and closes the output
//   - aborting the input or canceling the output runs the transformer's
//     Cancel exactly once and errors the other side
//   - Controller.Error, or a failing algorithm, errors both sides
//   - Controller.Terminate closes the output and errors the input
//
// # Usage
//
//	t, err := stream.New(ctx, &stream.Transformer[string, int]{
//	    Transform: func(_ context.Context, s string, c *stream.Controller[int]) error {
//	        return c.Enqueue(len(s))
//	    },
//	}, nil, nil)
//	if err != nil {
//	    return err
//	}
//	go func() {
//	    for _, s := range words {
//	        if err := t.Input().Write(ctx, s); err != nil {
//	            return
//	        }
//	    }
//	    _ = t.Input().Close(ctx)
//	}()
//	for {
//	    n, ok, err := t.Output().Read(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(n)
//	}
//
// Writable and Readable can also be used on their own, over an
// UnderlyingSink or UnderlyingSource.
//
// # Concurrency
//
// All methods are safe for concurrent use. User algorithms never run while
// the stream's internal lock is held, so they may call back into the
// controller or the stream. Size functions are the exception: they run
// under the lock and must not touch the stream.
package stream
