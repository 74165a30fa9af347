// Package debounce delays a rapidly changing value until it settles.
package debounce

import (
	"sync"
	"time"
)

// Debouncer calls fn with the latest pushed value once delay has passed
// without a newer push. Only the latest value survives.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	next    T
	last    T
	stopped bool

	// emitMu is held while fn runs so Stop can wait for it.
	emitMu sync.Mutex
}

// New returns a Debouncer. With delay <= 0 every Push emits immediately.
// fn must not call back into the Debouncer.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Push replaces any pending value with v and restarts the delay.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.next = v
	d.pending = true
	gen := d.gen

	if d.delay <= 0 {
		d.mu.Unlock()
		d.fire(gen)
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
	d.mu.Unlock()
}

// Flush emits the pending value now, if there is one.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// Value returns the last emitted value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Stop cancels any pending emission. Once Stop returns fn will not be
// called again.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	// wait out an emission that already passed the checks
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.next
	d.pending = false
	d.last = v
	d.timer = nil
	d.mu.Unlock()

	d.fn(v)
}
