package ui

import (
	"context"
	"sync"
)

// Loop is the single event loop that owns the queue and everything the
// console touches. Work from other goroutines is marshaled onto it with
// IdleAdd.
type Loop struct {
	queue chan func()
	quit  chan struct{}
	once  sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		queue: make(chan func(), 64),
		quit:  make(chan struct{}),
	}
}

// IdleAdd queues f to run on the loop. It blocks if the loop is backed up,
// and drops f if the loop has quit. It must not be called from the loop
// itself while the queue is full.
func (l *Loop) IdleAdd(f func()) {
	select {
	case l.queue <- f:
	case <-l.quit:
	}
}

// Quit stops the loop after the callback being run returns. It is safe to
// call more than once.
func (l *Loop) Quit() {
	l.once.Do(func() { close(l.quit) })
}

// Done returns a channel that is closed once Quit is called.
func (l *Loop) Done() <-chan struct{} {
	return l.quit
}

// Run runs queued callbacks until Quit is called or ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		// Prefer quitting over draining the queue.
		select {
		case <-l.quit:
			return
		default:
		}

		select {
		case <-ctx.Done():
			l.Quit()
			return
		case <-l.quit:
			return
		case f := <-l.queue:
			f()
		}
	}
}
