// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package tui

import (
	"sync"

	"github.com/sigil-dev/projector/internal/projection"
)

// Watchable is the part of projection.Manager the view needs.
type Watchable interface {
	Watch(fn func(projection.Result)) func()
}

// Feed turns a watcher callback into a channel holding the latest result.
// Older undelivered results are dropped; only the newest one matters for
// rendering.
type Feed struct {
	mu     sync.Mutex
	ch     chan projection.Result
	cancel func()
	closed bool
}

// NewFeed registers a watcher on w. The current result is available on C
// immediately.
func NewFeed(w Watchable) *Feed {
	f := &Feed{ch: make(chan projection.Result, 1)}
	f.cancel = w.Watch(f.push)
	return f
}

// C returns the result channel. It is closed by Close.
func (f *Feed) C() <-chan projection.Result {
	return f.ch
}

func (f *Feed) push(r projection.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case <-f.ch:
	default:
	}
	f.ch <- r
}

// Close unregisters the watcher, drops any undelivered result and closes the
// channel. It is safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	select {
	case <-f.ch:
	default:
	}
	close(f.ch)
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
}
