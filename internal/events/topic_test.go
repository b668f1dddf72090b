package events

import "testing"

func TestTopicDeliversInSubscriptionOrder(t *testing.T) {
	topic := NewTopic[int]()

	var got []string
	topic.Subscribe(func(v int) { got = append(got, "a") })
	topic.Subscribe(func(v int) { got = append(got, "b") })
	topic.Subscribe(func(v int) { got = append(got, "c") })

	topic.Publish(1)

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestTopicCancel(t *testing.T) {
	topic := NewTopic[string]()

	calls := 0
	cancel := topic.Subscribe(func(string) { calls++ })
	topic.Publish("first")
	cancel()
	cancel()
	topic.Publish("second")

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if topic.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", topic.Len())
	}
}

func TestTopicUnsubscribeDuringPublish(t *testing.T) {
	topic := NewTopic[bool]()

	var cancelSelf func()
	selfCalls, otherCalls := 0, 0
	cancelSelf = topic.Subscribe(func(bool) {
		selfCalls++
		cancelSelf()
	})
	topic.Subscribe(func(bool) { otherCalls++ })

	topic.Publish(true)
	topic.Publish(false)

	if selfCalls != 1 {
		t.Errorf("expected self-cancelling handler to run once, got %d", selfCalls)
	}
	if otherCalls != 2 {
		t.Errorf("expected other handler to run twice, got %d", otherCalls)
	}
}

func TestTopicClose(t *testing.T) {
	topic := NewTopic[int]()

	calls := 0
	topic.Subscribe(func(int) { calls++ })
	topic.Close()
	topic.Publish(1)
	topic.Subscribe(func(int) { calls++ })()
	topic.Publish(2)

	if calls != 0 {
		t.Fatalf("expected no deliveries after close, got %d", calls)
	}
}
