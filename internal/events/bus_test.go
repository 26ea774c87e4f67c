package events

import (
	"testing"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()

	received := []Event{}
	unsub := bus.Subscribe(TopicTasksRefreshed, func(e Event) {
		received = append(received, e)
	})
	defer unsub()

	bus.Publish(TopicTasksRefreshed, map[string]any{"owner_id": "user_1"})

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Topic != TopicTasksRefreshed {
		t.Errorf("topic: got %s, want %s", received[0].Topic, TopicTasksRefreshed)
	}
	if owner, ok := received[0].Payload["owner_id"].(string); !ok || owner != "user_1" {
		t.Errorf("owner_id: got %v, want user_1", received[0].Payload["owner_id"])
	}
}

func TestBus_SubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	for _, name := range []string{"A", "B", "C"} {
		name := name
		defer bus.Subscribe(TopicTasksRefreshed, func(Event) {
			order = append(order, name)
		})()
	}

	bus.Publish(TopicTasksRefreshed, nil)

	want := "ABC"
	got := ""
	for _, n := range order {
		got += n
	}
	if got != want {
		t.Errorf("delivery order: got %s, want %s", got, want)
	}
}

func TestBus_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	var order []string
	defer bus.Subscribe(TopicTasksRefreshed, func(Event) {
		order = append(order, "A")
	})()
	defer bus.Subscribe(TopicTasksRefreshed, func(Event) {
		panic("handler B blew up")
	})()
	defer bus.Subscribe(TopicTasksRefreshed, func(Event) {
		order = append(order, "C")
	})()

	bus.Publish(TopicTasksRefreshed, nil)

	if len(order) != 2 || order[0] != "A" || order[1] != "C" {
		t.Errorf("expected A then C despite B panicking, got %v", order)
	}
}

func TestBus_NoReplayForLateSubscriber(t *testing.T) {
	bus := NewBus()

	bus.Publish(TopicTasksRefreshed, nil)

	called := false
	defer bus.Subscribe(TopicTasksRefreshed, func(Event) {
		called = true
	})()

	if called {
		t.Errorf("late subscriber must not receive earlier publishes")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsub := bus.Subscribe(TopicTasksRefreshed, func(Event) {
		calls++
	})

	bus.Publish(TopicTasksRefreshed, nil)
	unsub()
	bus.Publish(TopicTasksRefreshed, nil)

	if calls != 1 {
		t.Errorf("calls after unsubscribe: got %d, want 1", calls)
	}
	if n := bus.SubscriberCount(TopicTasksRefreshed); n != 0 {
		t.Errorf("subscriber count: got %d, want 0", n)
	}
}

func TestBus_TopicsIsolated(t *testing.T) {
	bus := NewBus()

	refreshed := 0
	completed := 0
	defer bus.Subscribe(TopicTasksRefreshed, func(Event) { refreshed++ })()
	defer bus.Subscribe(TopicSyncCompleted, func(Event) { completed++ })()

	bus.Publish(TopicSyncCompleted, nil)

	if refreshed != 0 || completed != 1 {
		t.Errorf("topic isolation broken: refreshed=%d completed=%d", refreshed, completed)
	}
}
