// Package generic holds typed wrappers over standard library containers.
package generic

import "sync"

// Pool is a typed sync.Pool.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T) T
}

type PoolOption[T any] func(*Pool[T])

// WithReset runs reset on every value handed back through Put.
func WithReset[T any](reset func(T) T) PoolOption[T] {
	return func(p *Pool[T]) { p.reset = reset }
}

// WithWarm pre-fills the pool with n generated values.
func WithWarm[T any](n int) PoolOption[T] {
	return func(p *Pool[T]) {
		for i := 0; i < n; i++ {
			p.pool.Put(p.pool.New())
		}
	}
}

func NewPool[T any](generate func() T, opts ...PoolOption[T]) *Pool[T] {
	p := &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		value = p.reset(value)
	}
	p.pool.Put(value)
}

// NewBufferPool pools byte slices with at least size bytes of capacity.
// Slices come back truncated to zero length.
func NewBufferPool(size int) *Pool[*[]byte] {
	return NewPool(func() *[]byte {
		buf := make([]byte, 0, size)
		return &buf
	}, WithReset(func(buf *[]byte) *[]byte {
		*buf = (*buf)[:0]
		return buf
	}))
}
