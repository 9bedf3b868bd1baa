package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func recv(t *testing.T, p *Peer) Event {
	t.Helper()
	select {
	case ev := <-p.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestProjectTopic(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	if got := ProjectTopic(id); got != "/topic/project/507f1f77bcf86cd799439011" {
		t.Errorf("ProjectTopic = %q", got)
	}
}

func TestHub_PublishOnlyToTopic(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, cancelA := h.Subscribe("/topic/project/a")
	defer cancelA()
	b, cancelB := h.Subscribe("/topic/project/b")
	defer cancelB()

	wi := &models.WorkItem{ID: primitive.NewObjectID(), Title: "x"}
	h.Publish("/topic/project/a", Event{Type: Created, WorkItem: wi, WorkItemID: wi.ID.Hex()})

	ev := recv(t, a)
	if ev.Type != Created || ev.WorkItemID != wi.ID.Hex() {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-b.Events():
		t.Errorf("peer on other topic received %+v", ev)
	default:
	}
}

func TestHub_CancelRemovesPeer(t *testing.T) {
	h := NewHub(zap.NewNop())
	p, cancel := h.Subscribe("t")
	if h.Subscribers("t") != 1 {
		t.Fatalf("Subscribers = %d, want 1", h.Subscribers("t"))
	}
	cancel()
	cancel()
	if h.Subscribers("t") != 0 {
		t.Errorf("Subscribers after cancel = %d, want 0", h.Subscribers("t"))
	}
	select {
	case <-p.Done():
	default:
		t.Error("peer not closed after cancel")
	}
}

func TestHub_SlowPeerDropped(t *testing.T) {
	h := NewHub(zap.NewNop())
	slow, cancel := h.Subscribe("t")
	defer cancel()

	for i := 0; i < peerQueue+1; i++ {
		h.Publish("t", Event{Type: Updated})
	}
	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow peer was not dropped")
	}
	if h.Subscribers("t") != 0 {
		t.Errorf("Subscribers = %d, want 0", h.Subscribers("t"))
	}
}

func TestHub_StopClosesPeers(t *testing.T) {
	h := NewHub(zap.NewNop())
	p, _ := h.Subscribe("t")
	h.Stop()

	select {
	case <-p.Done():
	default:
		t.Error("peer not closed by Stop")
	}
	late, _ := h.Subscribe("t")
	select {
	case <-late.Done():
	default:
		t.Error("Subscribe after Stop should return a closed peer")
	}
}

func TestHub_ConcurrentPublish(t *testing.T) {
	h := NewHub(zap.NewNop())
	p, cancel := h.Subscribe("t")
	defer cancel()

	var wg sync.WaitGroup
	const n = 16
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Publish("t", Event{Type: Updated})
		}()
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		recv(t, p)
	}
}
