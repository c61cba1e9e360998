// Package ingest bridges external live-chat feeds into relay rooms. A Source
// produces chat and gift events; forwarders push them to a relay room or an
// HTTP webhook, optionally filtered by a comment prefix.
package ingest

import (
	"context"
	"sync"
)

// ChatEvent is one viewer comment from a live feed.
type ChatEvent struct {
	ID                string `json:"id"`
	UniqueID          string `json:"uniqueId"`
	UserID            string `json:"userId"`
	Comment           string `json:"comment"`
	Nickname          string `json:"nickname"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	Timestamp         int64  `json:"timestamp"` // unix milliseconds
}

// GiftEvent is one gift sent during a live feed.
type GiftEvent struct {
	ID                string `json:"id"`
	UniqueID          string `json:"uniqueId"`
	UserID            string `json:"userId"`
	GiftID            int64  `json:"giftId"`
	GiftName          string `json:"giftName"`
	DiamondCount      int    `json:"diamondCount"`
	Nickname          string `json:"nickname"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	Timestamp         int64  `json:"timestamp"` // unix milliseconds
}

// Unsubscribe removes a previously registered handler.
type Unsubscribe func()

// Source is a live feed of chat and gift events for one streamer. Handlers
// registered before Connect receive events from the start of the session.
type Source interface {
	Connect(ctx context.Context, username string) error
	Disconnect() error
	OnChat(fn func(ChatEvent)) Unsubscribe
	OnGift(fn func(GiftEvent)) Unsubscribe
}

// Feed is an in-process Source fed by Publish calls. It backs tests and any
// ingestion path that receives events from elsewhere (queues, stdin, custom
// collectors) rather than a network listener of its own.
type Feed struct {
	mu           sync.Mutex
	nextHandle   uint64
	chatHandlers map[uint64]func(ChatEvent)
	giftHandlers map[uint64]func(GiftEvent)
	connected    bool
	username     string
}

func NewFeed() *Feed {
	return &Feed{
		chatHandlers: make(map[uint64]func(ChatEvent)),
		giftHandlers: make(map[uint64]func(GiftEvent)),
	}
}

func (f *Feed) Connect(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	f.username = username
	return nil
}

func (f *Feed) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.username = ""
	return nil
}

// Username reports the streamer the feed is connected to, empty when idle.
func (f *Feed) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *Feed) OnChat(fn func(ChatEvent)) Unsubscribe {
	f.mu.Lock()
	f.nextHandle++
	handle := f.nextHandle
	f.chatHandlers[handle] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.chatHandlers, handle)
		f.mu.Unlock()
	}
}

func (f *Feed) OnGift(fn func(GiftEvent)) Unsubscribe {
	f.mu.Lock()
	f.nextHandle++
	handle := f.nextHandle
	f.giftHandlers[handle] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.giftHandlers, handle)
		f.mu.Unlock()
	}
}

// PublishChat delivers one chat event to every registered handler. Handlers
// run inline on the caller's goroutine.
func (f *Feed) PublishChat(ev ChatEvent) {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return
	}
	handlers := make([]func(ChatEvent), 0, len(f.chatHandlers))
	for _, fn := range f.chatHandlers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// PublishGift delivers one gift event to every registered handler.
func (f *Feed) PublishGift(ev GiftEvent) {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return
	}
	handlers := make([]func(GiftEvent), 0, len(f.giftHandlers))
	for _, fn := range f.giftHandlers {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
