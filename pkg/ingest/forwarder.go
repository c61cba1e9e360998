package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"castrelay/pkg/relay"
)

// Event names used when forwarding into a relay room.
const (
	ChatEventName = "tiktok-chat"
	GiftEventName = "tiktok-gift"
)

// RelayForwarder emits feed events into one relay room.
type RelayForwarder struct {
	client  *relay.Client
	roomID  string
	timeout time.Duration
}

func NewRelayForwarder(client *relay.Client, roomID string) *RelayForwarder {
	return &RelayForwarder{
		client:  client,
		roomID:  roomID,
		timeout: 10 * time.Second,
	}
}

// ForwardChat relays one chat event. The event payload crosses the relay
// unchanged, so room members decode the same ChatEvent JSON.
func (f *RelayForwarder) ForwardChat(ev ChatEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	return f.client.Emit(ctx, f.roomID, ChatEventName, ev)
}

func (f *RelayForwarder) ForwardGift(ev GiftEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	return f.client.Emit(ctx, f.roomID, GiftEventName, ev)
}

// Attach subscribes the forwarder to a source, filtering chat comments by
// prefix. Forward errors are dropped: a dead relay must not stall the feed.
func (f *RelayForwarder) Attach(src Source, prefix string) Unsubscribe {
	offChat := src.OnChat(PrefixFilter(prefix, func(ev ChatEvent) {
		_ = f.ForwardChat(ev)
	}))
	offGift := src.OnGift(func(ev GiftEvent) {
		_ = f.ForwardGift(ev)
	})

	return func() {
		offChat()
		offGift()
	}
}

// WebhookForwarder POSTs feed events as JSON to a configured URL.
type WebhookForwarder struct {
	url    string
	apiKey string
	client *http.Client
}

func NewWebhookForwarder(url, apiKey string) *WebhookForwarder {
	return &WebhookForwarder{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// webhookPayload tags each delivery with its kind so one endpoint can take
// both chats and gifts.
type webhookPayload struct {
	Type  string `json:"type"` // "chat" or "gift"
	Event any    `json:"event"`
}

func (f *WebhookForwarder) post(ctx context.Context, kind string, event any) error {
	body, err := json.Marshal(webhookPayload{Type: kind, Event: event})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ingest: webhook %s returned %d", f.url, resp.StatusCode)
	}
	return nil
}

func (f *WebhookForwarder) ForwardChat(ctx context.Context, ev ChatEvent) error {
	return f.post(ctx, "chat", ev)
}

func (f *WebhookForwarder) ForwardGift(ctx context.Context, ev GiftEvent) error {
	return f.post(ctx, "gift", ev)
}

// Attach subscribes the forwarder to a source, filtering chat comments by
// prefix. Delivery errors are dropped.
func (f *WebhookForwarder) Attach(src Source, prefix string) Unsubscribe {
	offChat := src.OnChat(PrefixFilter(prefix, func(ev ChatEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), f.client.Timeout)
		defer cancel()
		_ = f.ForwardChat(ctx, ev)
	}))
	offGift := src.OnGift(func(ev GiftEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), f.client.Timeout)
		defer cancel()
		_ = f.ForwardGift(ctx, ev)
	})

	return func() {
		offChat()
		offGift()
	}
}
