package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const DefaultBridgeChannel = "relay:broadcast"

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

type bridgeMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room,omitempty"`
	Except string          `json:"except,omitempty"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisBridge relays room and global deliveries between instances over one
// Redis pub/sub channel. Messages an instance published itself are ignored
// on the way back.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger
}

func NewRedisBridge(client *redis.Client, channel string, log *slog.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultBridgeChannel
	}
	if log == nil {
		log = slog.Default()
	}
	origin := uuid.NewString()
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  origin,
		log:     log.With("bridge_origin", origin),
	}
}

func (b *RedisBridge) Publish(ctx context.Context, d Delivery) error {
	if d.SocketID != "" {
		return nil
	}
	payload, err := b.encode(d)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run replays deliveries from other instances into hub until ctx ends.
func (b *RedisBridge) Run(ctx context.Context, hub *Hub) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info("subscribed to redis channel", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(hub, msg.Payload)
		}
	}
}

func (b *RedisBridge) encode(d Delivery) (string, error) {
	raw, err := json.Marshal(bridgeMessage{
		Origin: b.origin,
		Room:   d.Room,
		Except: d.Except,
		Frame:  d.Payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode bridge message: %w", err)
	}
	return string(raw), nil
}

func (b *RedisBridge) handle(hub *Hub, payload string) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.log.Warn("ignoring malformed bridge message", "error", err)
		return
	}
	if msg.Origin == b.origin {
		return
	}
	var frame Frame
	if err := json.Unmarshal(msg.Frame, &frame); err != nil || frame.Event == "" {
		b.log.Warn("ignoring bridge message without a frame", "room", msg.Room)
		return
	}
	bridgeReceived.Inc()
	hub.Send(&Delivery{Room: msg.Room, Except: msg.Except, Payload: msg.Frame})
}
