// internal/element/dispatcher.go
package element

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrDispatcherClosed is returned by Invoke after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

type job struct {
	fn     func() error
	result chan error
}

// Dispatcher runs closures one at a time on a single goroutine. Trees bound
// to it reject calls made outside one of its closures. Invoke must not be
// called from inside a closure of the same dispatcher.
type Dispatcher struct {
	jobs    chan job
	quit    chan struct{}
	done    chan struct{}
	active  atomic.Bool
	closing sync.Once
	logger  *zap.Logger
}

// NewDispatcher starts the dispatcher goroutine.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		jobs:   make(chan job),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.Named("dispatcher"),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case j := <-d.jobs:
			j.result <- d.run(j.fn)
		}
	}
}

func (d *Dispatcher) run(fn func() error) (err error) {
	d.active.Store(true)
	defer d.active.Store(false)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Dispatched work panicked", zap.Any("panic", r))
			err = fmt.Errorf("dispatched work panicked: %v", r)
		}
	}()
	return fn()
}

// Invoke runs fn on the dispatcher goroutine and waits for its result.
// If ctx ends first, Invoke returns ctx.Err(); a started fn still runs
// to completion.
func (d *Dispatcher) Invoke(ctx context.Context, fn func() error) error {
	j := job{fn: fn, result: make(chan error, 1)}
	select {
	case d.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrDispatcherClosed
	}
	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckAccess reports whether the caller runs inside a dispatched closure.
func (d *Dispatcher) CheckAccess() bool {
	return d.active.Load()
}

// Close stops the goroutine and waits for it to exit.
func (d *Dispatcher) Close() {
	d.closing.Do(func() { close(d.quit) })
	<-d.done
}
