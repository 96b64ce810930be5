package feed

import (
	"sync"

	"github.com/jpalmerr/resultboard"
)

const subscriberBuffer = 100

// MemoryFeed is the in-process implementation of [Feed].
//
// Subscribers receive views via buffered channels (buffer size 100). Sends
// are non-blocking; if a subscriber's buffer is full, the view is dropped
// for that subscriber.
type MemoryFeed struct {
	mu     sync.RWMutex
	latest resultboard.View

	subMu       sync.RWMutex
	subscribers map[chan resultboard.View]struct{}

	stop func()
}

// NewMemoryFeed starts listening to src. Call [MemoryFeed.Close] to stop.
func NewMemoryFeed(src Source) *MemoryFeed {
	f := &MemoryFeed{
		latest:      src.CurrentView(),
		subscribers: make(map[chan resultboard.View]struct{}),
	}
	f.stop = src.Subscribe(func(st resultboard.State) {
		f.Publish(st.View())
	})
	return f
}

// Publish records v as the latest view and sends it to every subscriber.
func (f *MemoryFeed) Publish(v resultboard.View) {
	f.mu.Lock()
	f.latest = v
	f.mu.Unlock()

	f.subMu.RLock()
	defer f.subMu.RUnlock()
	for ch := range f.subscribers {
		select {
		case ch <- v:
		default:
			// subscriber is slow, drop the view
		}
	}
}

func (f *MemoryFeed) Latest() resultboard.View {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

func (f *MemoryFeed) Subscribe() <-chan resultboard.View {
	ch := make(chan resultboard.View, subscriberBuffer)

	f.subMu.Lock()
	f.subscribers[ch] = struct{}{}
	f.subMu.Unlock()

	return ch
}

func (f *MemoryFeed) Unsubscribe(ch <-chan resultboard.View) {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	for subCh := range f.subscribers {
		if subCh == ch {
			delete(f.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Close detaches the feed from its source and closes every subscriber
// channel.
func (f *MemoryFeed) Close() {
	if f.stop != nil {
		f.stop()
	}

	f.subMu.Lock()
	defer f.subMu.Unlock()
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}
