// Package parallel implements spec.md §4.5's parallel combinators
// (par-map, par-filter, par-reduce, par-fold, par-for-each, par-find,
// par-any, par-all, par-sort, par-partition) atop the work-stealing
// scheduler, each returning a future and preserving input order in its
// result container regardless of completion order (spec.md §4.5's ordering
// guarantee, tested as invariant 7 in spec.md §8). Grounded on the
// teacher's chunked-dispatch style in internal/core/shard_manager_spawn.go
// (spawn N shards, collect in index order) and golang.org/x/sync/errgroup
// for fan-out/fan-in error propagation.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/scmcore/internal/concurrency/future"
	"github.com/cwbudde/scmcore/internal/concurrency/scheduler"
	scmrt "github.com/cwbudde/scmcore/internal/runtime"
)

// minChunk avoids scheduling overhead on tiny workloads (spec.md §4.5:
// "minimum chunk avoids scheduling overhead on tiny workloads").
const minChunk = 16

// Func maps one input value to one output value or an error.
type Func func(v scmrt.Value) (scmrt.Value, error)

// Pred tests one input value.
type Pred func(v scmrt.Value) (bool, error)

// chunkSize picks a chunk size no smaller than minChunk, splitting n items
// roughly evenly across workers when the caller passes chunkHint<=0.
func chunkSize(n, workers, chunkHint int) int {
	if chunkHint > 0 {
		return chunkHint
	}
	if workers <= 0 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	if size < minChunk {
		size = minChunk
	}
	return size
}

func chunks(n, size int) [][2]int {
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// Map applies f to every element of xs, preserving order, returning a
// Future of the result slice boxed as a Vector.
func Map(pool *scheduler.Pool, xs []scmrt.Value, f Func, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		out := make([]scmrt.Value, len(xs))
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					v, err := f(xs[i])
					if err != nil {
						return err
					}
					out[i] = v
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return scmrt.NewVector(out), nil
	})
}

// Filter keeps elements for which pred is true, preserving relative order.
func Filter(pool *scheduler.Pool, xs []scmrt.Value, pred Pred, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		keep := make([]bool, len(xs))
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					ok, err := pred(xs[i])
					if err != nil {
						return err
					}
					keep[i] = ok
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		out := make([]scmrt.Value, 0, len(xs))
		for i, v := range xs {
			if keep[i] {
				out = append(out, v)
			}
		}
		return scmrt.NewVector(out), nil
	})
}

// ForEach applies f to every element for side effects only, preserving no
// particular completion order but resolving only once all complete.
func ForEach(pool *scheduler.Pool, xs []scmrt.Value, f func(scmrt.Value) error, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					if err := f(xs[i]); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return scmrt.Unit, nil
	})
}

// Reduce combines all elements with a commutative-assumed binary op,
// chunk-local then merged; callers needing strict left-to-right folding
// should use Fold instead, which is intentionally sequential.
func Reduce(pool *scheduler.Pool, xs []scmrt.Value, identity scmrt.Value, op func(a, b scmrt.Value) (scmrt.Value, error), chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		if len(xs) == 0 {
			return identity, nil
		}
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		cs := chunks(len(xs), size)
		partials := make([]scmrt.Value, len(cs))
		g, gctx := errgroup.WithContext(ctx)
		for ci, c := range cs {
			ci, lo, hi := ci, c[0], c[1]
			g.Go(func() error {
				acc := identity
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					v, err := op(acc, xs[i])
					if err != nil {
						return err
					}
					acc = v
				}
				partials[ci] = acc
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		acc := identity
		for _, p := range partials {
			v, err := op(acc, p)
			if err != nil {
				return nil, err
			}
			acc = v
		}
		return acc, nil
	})
}

// Fold sequentially folds xs left-to-right with op starting from init; it
// is not parallelized (order-dependent by definition) but still returns a
// Future for API uniformity with the other combinators.
func Fold(pool *scheduler.Pool, xs []scmrt.Value, init scmrt.Value, op func(acc, v scmrt.Value) (scmrt.Value, error)) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		acc := init
		for _, v := range xs {
			next, err := op(acc, v)
			if err != nil {
				return nil, err
			}
			acc = next
		}
		return acc, nil
	})
}

// Find returns the first element (in index order) satisfying pred, or
// scmrt.Unit if none does.
func Find(pool *scheduler.Pool, xs []scmrt.Value, pred Pred, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		matched := make([]bool, len(xs))
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					ok, err := pred(xs[i])
					if err != nil {
						return err
					}
					matched[i] = ok
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for i, ok := range matched {
			if ok {
				return xs[i], nil
			}
		}
		return scmrt.Unit, nil
	})
}

// Any resolves true as soon as any element satisfies pred (computed, not
// short-circuited across in-flight chunks, but cheap enough in practice).
func Any(pool *scheduler.Pool, xs []scmrt.Value, pred Pred, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		f := Find(pool, xs, pred, chunkHint)
		v, err := f.Await(ctx)
		if err != nil {
			return nil, err
		}
		return scmrt.Bool(v != scmrt.Unit), nil
	})
}

// All resolves true only if every element satisfies pred.
func All(pool *scheduler.Pool, xs []scmrt.Value, pred Pred, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					ok, err := pred(xs[i])
					if err != nil {
						return err
					}
					if !ok {
						return errAllFalse
					}
				}
				return nil
			})
		}
		err := g.Wait()
		if err == errAllFalse {
			return scmrt.Bool(false), nil
		}
		if err != nil {
			return nil, err
		}
		return scmrt.Bool(true), nil
	})
}

type sentinel string

func (s sentinel) Error() string { return string(s) }

const errAllFalse = sentinel("par-all: predicate false")

// Partition splits xs into (matching, non-matching), each preserving
// relative order.
func Partition(pool *scheduler.Pool, xs []scmrt.Value, pred Pred, chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		keep := make([]bool, len(xs))
		size := chunkSize(len(xs), pool.Stats().Workers, chunkHint)
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range chunks(len(xs), size) {
			lo, hi := c[0], c[1]
			g.Go(func() error {
				for i := lo; i < hi; i++ {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					ok, err := pred(xs[i])
					if err != nil {
						return err
					}
					keep[i] = ok
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		var yes, no []scmrt.Value
		for i, v := range xs {
			if keep[i] {
				yes = append(yes, v)
			} else {
				no = append(no, v)
			}
		}
		return scmrt.NewVector([]scmrt.Value{scmrt.NewVector(yes), scmrt.NewVector(no)}), nil
	})
}

// Sort parallel-sorts xs using less for comparison; chunk-local sorts are
// performed concurrently, then merged sequentially (a standard parallel
// merge sort shape), preserving a stable total order.
func Sort(pool *scheduler.Pool, xs []scmrt.Value, less func(a, b scmrt.Value) (bool, error), chunkHint int) *future.Future {
	return future.New(pool, func(ctx context.Context) (scmrt.Value, error) {
		n := len(xs)
		if n < 2 {
			out := append([]scmrt.Value(nil), xs...)
			return scmrt.NewVector(out), nil
		}
		size := chunkSize(n, pool.Stats().Workers, chunkHint)
		cs := chunks(n, size)
		sorted := make([][]scmrt.Value, len(cs))
		g, gctx := errgroup.WithContext(ctx)
		for ci, c := range cs {
			ci, lo, hi := ci, c[0], c[1]
			g.Go(func() error {
				local := append([]scmrt.Value(nil), xs[lo:hi]...)
				var sortErr error
				insertionSort(local, func(a, b scmrt.Value) bool {
					if sortErr != nil {
						return false
					}
					ok, err := less(a, b)
					if err != nil {
						sortErr = err
					}
					return ok
				})
				if sortErr != nil {
					return sortErr
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				sorted[ci] = local
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		merged := sorted[0]
		for _, next := range sorted[1:] {
			var err error
			merged, err = mergeSorted(merged, next, less)
			if err != nil {
				return nil, err
			}
		}
		return scmrt.NewVector(merged), nil
	})
}

func insertionSort(xs []scmrt.Value, less func(a, b scmrt.Value) bool) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && less(xs[j], xs[j-1]); j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

func mergeSorted(a, b []scmrt.Value, less func(x, y scmrt.Value) (bool, error)) ([]scmrt.Value, error) {
	out := make([]scmrt.Value, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ok, err := less(b[j], a[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out, nil
}
