package handlers

import (
	"context"
	"testing"
	"time"
)

func newTestClient(id string, buffer int) *ChatClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatClient{
		ID:       id,
		UserID:   id,
		UserName: id,
		Send:     make(chan map[string]interface{}, buffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func TestTrySendDropsOnFullBuffer(t *testing.T) {
	client := newTestClient("c1", 1)
	client.trySend(map[string]interface{}{"type": "a"})

	done := make(chan struct{})
	go func() {
		client.trySend(map[string]interface{}{"type": "b"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("trySend blocked on a full buffer")
	}
	if len(client.Send) != 1 {
		t.Fatalf("buffer len = %d, want 1", len(client.Send))
	}
}

func TestTrySendAfterDisconnect(t *testing.T) {
	client := newTestClient("c1", 4)
	client.cancel()

	// must neither panic nor queue anything once the client is gone
	client.trySend(map[string]interface{}{"type": "error"})
	if len(client.Send) != 0 {
		t.Fatal("message queued for a disconnected client")
	}
}

func TestBroadcastCutsStalledClientLoose(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	room := &ChatRoom{
		ID:         "r1",
		Clients:    make(map[string]*ChatClient),
		Broadcast:  make(chan *BroadcastMessage, 16),
		Register:   make(chan *ChatClient, 1),
		Unregister: make(chan *ChatClient, 1),
		ctx:        ctx,
		cancel:     cancel,
	}
	stalled := newTestClient("stalled", 1)
	stalled.Send <- map[string]interface{}{"type": "fill"}
	healthy := newTestClient("healthy", 4)
	room.Clients[stalled.ID] = stalled
	room.Clients[healthy.ID] = healthy

	go room.run()
	room.Broadcast <- &BroadcastMessage{Data: map[string]interface{}{"type": "message"}}

	select {
	case <-stalled.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stalled client still attached after full-buffer broadcast")
	}
	select {
	case <-healthy.Send:
	case <-time.After(time.Second):
		t.Fatal("healthy client missed the broadcast")
	}
	if healthy.ctx.Err() != nil {
		t.Fatal("healthy client disconnected")
	}

	// an inbound frame racing the disconnect still answers safely
	stalled.trySend(map[string]interface{}{"type": "error"})
}
