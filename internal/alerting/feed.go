package alerting

import (
	"sync"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

// FeedHandler receives alerts as they are created.
type FeedHandler func(alert *entities.Alert)

const (
	// feedBufferSize is the capacity of the async alert channel. Alerts are
	// dropped from the feed when it is full; they remain in the database.
	feedBufferSize = 256
)

// AlertFeed is an async fan-out of newly created alerts to live subscribers
// such as dashboard websockets. Publish never blocks the engine.
type AlertFeed struct {
	log logger.Logger

	mu       sync.RWMutex
	handlers map[uint64]FeedHandler
	nextID   uint64

	alertCh  chan *entities.Alert
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewAlertFeed creates a feed and starts its worker.
func NewAlertFeed(log logger.Logger) *AlertFeed {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	f := &AlertFeed{
		log:      log,
		handlers: make(map[uint64]FeedHandler),
		alertCh:  make(chan *entities.Alert, feedBufferSize),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go f.processLoop()
	return f
}

// Subscribe registers handler and returns a function that removes it.
func (f *AlertFeed) Subscribe(handler FeedHandler) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = handler
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

// Subscribers returns the number of registered handlers.
func (f *AlertFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}

// Publish enqueues alert for delivery to subscribers. Alerts published after
// Stop, or while the buffer is full, are dropped.
func (f *AlertFeed) Publish(alert *entities.Alert) {
	if f == nil || alert == nil {
		return
	}
	select {
	case <-f.stopCh:
		return
	default:
	}

	select {
	case f.alertCh <- alert:
	default:
		f.log.Warn("alert feed full, dropping alert",
			logger.Uint64("alert_id", uint64(alert.ID)))
	}
}

// Stop drains pending alerts and shuts the worker down. Safe to call more
// than once.
func (f *AlertFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	<-f.doneCh
}

func (f *AlertFeed) processLoop() {
	defer close(f.doneCh)
	for {
		select {
		case alert := <-f.alertCh:
			f.dispatch(alert)
		case <-f.stopCh:
			for {
				select {
				case alert := <-f.alertCh:
					f.dispatch(alert)
				default:
					return
				}
			}
		}
	}
}

func (f *AlertFeed) dispatch(alert *entities.Alert) {
	f.mu.RLock()
	handlers := make([]FeedHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		f.safeCall(h, alert)
	}
}

func (f *AlertFeed) safeCall(handler FeedHandler, alert *entities.Alert) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("alert feed handler panicked", logger.Any("panic", r))
		}
	}()
	handler(alert)
}
