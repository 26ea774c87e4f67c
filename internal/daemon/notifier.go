package daemon

import (
	"sync"
	"time"

	"github.com/hksdtp/salespulse/internal/events"
)

// notifier wraps the signal bus with per-owner debouncing of the refresh
// topic. One task-write burst reaches the bus via two routes (the engine's
// own publish and the filesystem watcher); a change must surface as one
// externally-visible notification, not two.
type notifier struct {
	bus    *events.Bus
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func newNotifier(bus *events.Bus, window time.Duration) *notifier {
	return &notifier{
		bus:    bus,
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Publish forwards to the bus, suppressing repeat refresh signals for the
// same owner inside the debounce window. Other topics pass through.
func (n *notifier) Publish(topic events.Topic, payload map[string]any) {
	if topic != events.TopicTasksRefreshed {
		n.bus.Publish(topic, payload)
		return
	}

	owner, _ := payload["owner_id"].(string)
	key := string(topic) + ":" + owner

	n.mu.Lock()
	now := time.Now()
	if last, ok := n.last[key]; ok && now.Sub(last) < n.window {
		n.mu.Unlock()
		return
	}
	n.last[key] = now
	n.mu.Unlock()

	n.bus.Publish(topic, payload)
}
