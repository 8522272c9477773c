package eventbus

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribedTopics(t *testing.T) {
	t.Parallel()

	bus := New()
	sub := bus.Subscribe(TopicSessionNavigated, TopicDownloadCaptured)
	defer sub.Close()

	bus.Publish(TopicSessionInput, SourceDriver, "ignored")
	bus.Publish(TopicDownloadCaptured, SourceDownloads, map[string]string{"file": "toolpath.rml"})

	select {
	case env := <-sub.C():
		if env.Topic != TopicDownloadCaptured {
			t.Fatalf("got topic %s, want %s", env.Topic, TopicDownloadCaptured)
		}
		if env.Source != SourceDownloads {
			t.Fatalf("got source %s, want %s", env.Source, SourceDownloads)
		}
		if env.Timestamp.IsZero() {
			t.Error("envelope has no timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("no envelope delivered")
	}

	select {
	case env := <-sub.C():
		t.Fatalf("unexpected extra envelope: %+v", env)
	default:
	}
}

func TestClosedSubscriptionStopsDelivery(t *testing.T) {
	t.Parallel()

	bus := New()
	sub := bus.Subscribe(TopicSessionButton)
	sub.Close()
	sub.Close() // idempotent

	// Must not panic or block.
	bus.Publish(TopicSessionButton, SourceDriver, nil)
}

func TestNilBusIsSafe(t *testing.T) {
	t.Parallel()

	var bus *Bus
	bus.Publish(TopicSessionNavigated, SourceDriver, nil)

	sub := bus.Subscribe(TopicSessionNavigated)
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("nil bus delivered an envelope")
		}
	default:
	}
	sub.Close()
}

func TestAllTopicsCoversPublishedTopics(t *testing.T) {
	t.Parallel()

	bus := New()
	sub := bus.Subscribe(AllTopics()...)
	defer sub.Close()

	for _, topic := range AllTopics() {
		bus.Publish(topic, SourceRouter, nil)
	}
	for range AllTopics() {
		select {
		case <-sub.C():
		case <-time.After(time.Second):
			t.Fatal("AllTopics subscription missed an envelope")
		}
	}
}
