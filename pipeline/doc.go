// Package pipeline provides lazy, pull-based pipelines and bridges them to
// the stream package.
//
// Pipelines are lazy: no work happens until values are pulled via Collect,
// Drain or ForEach. Each stage pulls from the previous stage on demand.
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//
// # Streams
//
//   - FromReadable: pull from a stream.Readable
//   - ToReadable: expose a pipeline as a stream.Readable
//   - Into: write a pipeline into a stream.Writable, closing it at the end
//   - Through: run a pipeline through a stream.Transform
//
// # Usage
//
//	t, _ := stream.New(ctx, &stream.Transformer[string, int]{
//	    Transform: func(_ context.Context, s string, c *stream.Controller[int]) error {
//	        return c.Enqueue(len(s))
//	    },
//	}, nil, nil)
//	lengths := pipeline.Through(pipeline.FromSlice(words), t)
//	long := pipeline.Filter(lengths, func(n int) bool { return n > 3 })
//	results, err := pipeline.Collect(ctx, long)
package pipeline
