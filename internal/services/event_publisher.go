package services

import (
	"context"

	"github.com/UthayakumarDevon/livechatapp/internal/events"
	"github.com/UthayakumarDevon/livechatapp/internal/metrics"

	"go.uber.org/zap"
)

// Broadcaster delivers encoded frames to live connections. Delivery is
// fire-and-forget except for SendToWait; the return values count queued
// frames.
type Broadcaster interface {
	SendTo(connID string, frame []byte) bool
	SendToWait(ctx context.Context, connID string, frame []byte) error
	BroadcastRoom(room string, frame []byte) int
	BroadcastAll(frame []byte) int
	JoinRoom(connID, room string) bool
}

// EventPublisher encodes outbound events and hands them to the Broadcaster.
type EventPublisher struct {
	hub     Broadcaster
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewEventPublisher(hub Broadcaster, log *zap.Logger, m *metrics.Metrics) *EventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventPublisher{hub: hub, log: log, metrics: m}
}

func (p *EventPublisher) encode(eventType string, data any) ([]byte, bool) {
	frame, err := events.Encode(eventType, data)
	if err != nil {
		p.log.Error("encode_event_failed", zap.String("event", eventType), zap.Error(err))
		return nil, false
	}
	return frame, true
}

// ToCaller sends one event to a single connection.
func (p *EventPublisher) ToCaller(connID, eventType string, data any) {
	frame, ok := p.encode(eventType, data)
	if !ok {
		return
	}
	if p.hub.SendTo(connID, frame) {
		p.metrics.EventsOut(events.ScopeCaller, 1)
	}
}

// Replay sends one event to a single connection and waits for queue space
// instead of dropping it. Join replays go through here so none of their
// frames are lost to a full send buffer.
func (p *EventPublisher) Replay(ctx context.Context, connID, eventType string, data any) error {
	frame, ok := p.encode(eventType, data)
	if !ok {
		return nil
	}
	if err := p.hub.SendToWait(ctx, connID, frame); err != nil {
		return err
	}
	p.metrics.EventsOut(events.ScopeCaller, 1)
	return nil
}

// ToRoom sends one event to every connection joined to room.
func (p *EventPublisher) ToRoom(room, eventType string, data any) {
	frame, ok := p.encode(eventType, data)
	if !ok {
		return
	}
	p.metrics.EventsOut(events.ScopeRoom, p.hub.BroadcastRoom(room, frame))
}

// ToAll sends one event to every live connection.
func (p *EventPublisher) ToAll(eventType string, data any) {
	frame, ok := p.encode(eventType, data)
	if !ok {
		return
	}
	p.metrics.EventsOut(events.ScopeGlobal, p.hub.BroadcastAll(frame))
}

// Error reports a failed inbound event back to its sender.
func (p *EventPublisher) Error(connID, inbound, code, msg string) {
	p.ToCaller(connID, events.EventTypeError, events.ErrorPayload{Event: inbound, Code: code, Message: msg})
}
