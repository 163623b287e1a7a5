package util

import "sync"

// Pool is a thread-safe pool of reusable objects.
// Unlike sync.Pool it never drops objects on GC, which keeps the send loop's batch buffers
// warm between bursts, and its Count is exact which makes it testable.
//
// No validation is done on Return: returning the same object twice puts it into the pool
// twice. Callers must make sure an object is returned at most once per Take.
type Pool[T any] struct {
	mu      sync.Mutex
	objects []T
	factory func() T
}

// NewPool creates a new pool that uses factory to create objects when the pool is empty
func NewPool[T any](factory func() T) *Pool[T] {
	return &Pool[T]{factory: factory}
}

// Take returns a pooled object, or a new one from the factory if the pool is empty
func (p *Pool[T]) Take() T {
	p.mu.Lock()
	n := len(p.objects)
	if n == 0 {
		p.mu.Unlock()
		return p.factory()
	}
	obj := p.objects[n-1]
	var zero T
	p.objects[n-1] = zero
	p.objects = p.objects[:n-1]
	p.mu.Unlock()
	return obj
}

// Return puts an object back into the pool
func (p *Pool[T]) Return(obj T) {
	p.mu.Lock()
	p.objects = append(p.objects, obj)
	p.mu.Unlock()
}

// Count returns the number of pooled objects
func (p *Pool[T]) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects)
}

// Clear removes all pooled objects
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	p.objects = nil
	p.mu.Unlock()
}
