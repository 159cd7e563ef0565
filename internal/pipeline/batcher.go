package pipeline

import (
	"time"
	"unicode/utf8"

	"lightsync/internal/logger"
	"lightsync/internal/model"

	"go.uber.org/zap"
)

// Batcher coalesces a noisy event stream into settled per-path events. Each
// incoming event for a path resets that path's debounce timer; when the
// timer fires the net effect of the sequence is emitted. Create followed by
// Delete inside one window cancels out entirely.
//
// Per-path state lives in the Run goroutine, which is the only sender on the
// output channel. Timers signal it through flushCh instead of emitting
// directly, so a timer firing during shutdown cannot hit a closed channel.
type Batcher struct {
	window  time.Duration
	pending map[string]model.FileEvent
	timers  map[string]*time.Timer
	flushCh chan string
	doneCh  chan struct{}
	outCh   chan model.FileEvent
}

func NewBatcher(window time.Duration, buffer int) *Batcher {
	return &Batcher{
		window:  window,
		pending: make(map[string]model.FileEvent),
		timers:  make(map[string]*time.Timer),
		flushCh: make(chan string),
		doneCh:  make(chan struct{}),
		outCh:   make(chan model.FileEvent, buffer),
	}
}

// Run consumes the raw stream. The returned channel carries settled events
// and closes after the input closes and all pending paths have flushed.
func (b *Batcher) Run(inCh <-chan model.FileEvent) <-chan model.FileEvent {
	go func() {
		for {
			select {
			case event, ok := <-inCh:
				if !ok {
					close(b.doneCh)
					for _, pending := range b.drain() {
						b.outCh <- pending
					}
					close(b.outCh)
					return
				}
				b.add(event)

			case path := <-b.flushCh:
				if event, ok := b.take(path); ok {
					b.outCh <- event
				}
			}
		}
	}()

	return b.outCh
}

// add merges one raw event into the pending slot for its path and resets the
// debounce timer.
func (b *Batcher) add(event model.FileEvent) {
	if event.Path == "" || !utf8.ValidString(event.Path) {
		logger.Log.Warn("dropping event with unusable path",
			zap.String("type", string(event.Type)))
		return
	}

	path := event.Path

	// A rename consumes any pending event for the old path; later events on
	// the old path are a fresh sequence for a reused name.
	if event.Type == model.EventRename && event.OldPath != "" {
		b.drop(event.OldPath)
	}

	merged, keep := coalesce(b.pending[path], event)
	if !keep {
		b.drop(path)
		return
	}

	b.pending[path] = merged

	if t, ok := b.timers[path]; ok {
		t.Stop()
	}
	b.timers[path] = time.AfterFunc(b.window, func() {
		select {
		case b.flushCh <- path:
		case <-b.doneCh:
		}
	})
}

// coalesce computes the net effect of a pending event followed by an
// incoming one. keep=false means the pair cancels out.
func coalesce(prev, next model.FileEvent) (model.FileEvent, bool) {
	if prev.Type == "" {
		return next, true
	}

	switch {
	case prev.Type == model.EventCreate && next.Type == model.EventModify:
		// Creation is still pending; keep reporting a create.
		next.Type = model.EventCreate
		return next, true

	case prev.Type == model.EventCreate && next.Type == model.EventDelete:
		return model.FileEvent{}, false

	case prev.Type == model.EventDelete &&
		(next.Type == model.EventCreate || next.Type == model.EventModify):
		// Deleted then recreated inside the window: the file changed.
		next.Type = model.EventModify
		return next, true

	default:
		return next, true
	}
}

// take pops the pending event for a path, if one survived coalescing since
// its timer was armed.
func (b *Batcher) take(path string) (model.FileEvent, bool) {
	event, ok := b.pending[path]
	if ok {
		delete(b.pending, path)
		delete(b.timers, path)
	}

	return event, ok
}

// drain stops every timer and empties the pending set. Called once on
// shutdown so nothing settled is lost.
func (b *Batcher) drain() []model.FileEvent {
	events := make([]model.FileEvent, 0, len(b.pending))
	for path, event := range b.pending {
		if t, ok := b.timers[path]; ok {
			t.Stop()
		}
		events = append(events, event)
	}
	b.pending = make(map[string]model.FileEvent)
	b.timers = make(map[string]*time.Timer)

	return events
}

func (b *Batcher) drop(path string) {
	if t, ok := b.timers[path]; ok {
		t.Stop()
		delete(b.timers, path)
	}
	delete(b.pending, path)
}
