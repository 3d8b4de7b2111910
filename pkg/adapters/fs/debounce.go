package fs

import (
	"sync"
	"time"

	"github.com/aretw0/meteora/pkg/core"
)

// debouncer coalesces bursts of events per note ID into one event, delivered
// after the quiet period.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	timer *time.Timer
	event core.Event
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, pending: make(map[string]*pendingEvent)}
}

func (d *debouncer) add(e core.Event, deliver func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if p, ok := d.pending[e.ID]; ok {
		e.Type = mergeTypes(p.event.Type, e.Type)
		if p.timer.Stop() {
			d.wg.Done()
		}
	}
	p := &pendingEvent{event: e}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.pending[e.ID] == p {
			delete(d.pending, e.ID)
		}
		d.mu.Unlock()
		deliver(p.event)
	})
	d.pending[e.ID] = p
}

// mergeTypes folds two consecutive events on the same file.
// A write right after creation is still a creation; a file replaced
// after removal was modified.
func mergeTypes(prev, next core.EventType) core.EventType {
	switch {
	case prev == core.EventCreate && next == core.EventModify:
		return core.EventCreate
	case prev == core.EventDelete && next == core.EventCreate:
		return core.EventModify
	default:
		return next
	}
}

// stopAndWait rejects new events and waits up to timeout for in-flight deliveries.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
