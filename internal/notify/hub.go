package notify

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/ws"
)

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(room string, event ws.Event) bool
}

// HubSink pushes events to admins connected to the live order feed.
type HubSink struct {
	hub Broadcaster
}

func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Send(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if !s.hub.Broadcast(ws.RoomAdmin, ws.Event{Type: e.Type, Payload: payload}) {
		return errors.New("hub queue full")
	}
	return nil
}
