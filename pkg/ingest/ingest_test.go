package ingest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func publishChats(t *testing.T, feed *Feed, comments ...string) {
	t.Helper()
	for i, comment := range comments {
		feed.PublishChat(ChatEvent{
			ID:       string(rune('a' + i)),
			UniqueID: "viewer1",
			Comment:  comment,
		})
	}
}

func TestFeed_DeliversToHandlers(t *testing.T) {
	feed := NewFeed()
	if err := feed.Connect(context.Background(), "streamer"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := feed.Username(); got != "streamer" {
		t.Errorf("Username() = %q, want streamer", got)
	}

	var chats []ChatEvent
	var gifts []GiftEvent
	feed.OnChat(func(ev ChatEvent) { chats = append(chats, ev) })
	feed.OnGift(func(ev GiftEvent) { gifts = append(gifts, ev) })

	feed.PublishChat(ChatEvent{Comment: "hello"})
	feed.PublishGift(GiftEvent{GiftName: "Rose", DiamondCount: 1})

	if len(chats) != 1 || chats[0].Comment != "hello" {
		t.Errorf("chats = %+v, want one hello", chats)
	}
	if len(gifts) != 1 || gifts[0].GiftName != "Rose" {
		t.Errorf("gifts = %+v, want one Rose", gifts)
	}
}

func TestFeed_UnsubscribeAndDisconnect(t *testing.T) {
	feed := NewFeed()
	if err := feed.Connect(context.Background(), "streamer"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	count := 0
	off := feed.OnChat(func(ChatEvent) { count++ })

	publishChats(t, feed, "one")
	off()
	publishChats(t, feed, "two")

	if count != 1 {
		t.Errorf("handler fired %d times, want 1", count)
	}

	// Events published while disconnected go nowhere.
	feed.OnChat(func(ChatEvent) { count++ })
	if err := feed.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	publishChats(t, feed, "three")

	if count != 1 {
		t.Errorf("handler fired %d times after disconnect, want 1", count)
	}
}

func TestPrefixFilter(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		comments []string
		want     []string
	}{
		{"empty prefix passes all", "", []string{"!cmd run", "hello"}, []string{"!cmd run", "hello"}},
		{"prefix filters", "!cmd", []string{"!cmd run", "hello", "!cmdx"}, []string{"!cmd run", "!cmdx"}},
		{"no matches", "!cmd", []string{"hello", "hi"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			fn := PrefixFilter(tt.prefix, func(ev ChatEvent) {
				got = append(got, ev.Comment)
			})
			for _, comment := range tt.comments {
				fn(ChatEvent{Comment: comment})
			}

			if len(got) != len(tt.want) {
				t.Fatalf("passed = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("passed[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWebhookForwarder(t *testing.T) {
	type received struct {
		body   webhookPayload
		apiKey string
	}
	got := make(chan received, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload webhookPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("webhook body decode error = %v", err)
		}
		got <- received{body: payload, apiKey: r.Header.Get("x-api-key")}
	}))
	defer srv.Close()

	f := NewWebhookForwarder(srv.URL, "hook-key")

	if err := f.ForwardChat(context.Background(), ChatEvent{Comment: "hello"}); err != nil {
		t.Fatalf("ForwardChat() error = %v", err)
	}
	if err := f.ForwardGift(context.Background(), GiftEvent{GiftName: "Rose"}); err != nil {
		t.Fatalf("ForwardGift() error = %v", err)
	}

	first := <-got
	if first.body.Type != "chat" {
		t.Errorf("first delivery type = %q, want chat", first.body.Type)
	}
	if first.apiKey != "hook-key" {
		t.Errorf("x-api-key = %q, want hook-key", first.apiKey)
	}
	if second := <-got; second.body.Type != "gift" {
		t.Errorf("second delivery type = %q, want gift", second.body.Type)
	}
}

func TestWebhookForwarder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewWebhookForwarder(srv.URL, "")
	if err := f.ForwardChat(context.Background(), ChatEvent{}); err == nil {
		t.Error("ForwardChat() error = nil on 502 response")
	}
}

func TestWebhookForwarder_AttachFiltersChats(t *testing.T) {
	var bodies []webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload webhookPayload
		_ = json.Unmarshal(raw, &payload)
		bodies = append(bodies, payload)
	}))
	defer srv.Close()

	feed := NewFeed()
	if err := feed.Connect(context.Background(), "streamer"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	f := NewWebhookForwarder(srv.URL, "")
	off := f.Attach(feed, "!cmd")
	defer off()

	publishChats(t, feed, "!cmd run", "just chatting")
	feed.PublishGift(GiftEvent{GiftName: "Rose"})

	// Feed handlers run inline, so deliveries completed before Publish
	// returned.
	if len(bodies) != 2 {
		t.Fatalf("deliveries = %d, want 2 (filtered chat + gift)", len(bodies))
	}
	if bodies[0].Type != "chat" || bodies[1].Type != "gift" {
		t.Errorf("delivery types = %s/%s, want chat/gift", bodies[0].Type, bodies[1].Type)
	}
}
