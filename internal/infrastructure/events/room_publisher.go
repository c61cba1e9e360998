package events

import (
	"context"
	"encoding/json"
	"log"

	"castrelay/internal/infrastructure/contracts"
	"castrelay/internal/infrastructure/messaging"
)

// RoomPublisher pushes room lifecycle events onto the relay exchange. It
// satisfies the dispatcher's LifecycleNotifier contract: publish failures are
// logged and swallowed, never propagated into the request path.
type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) publish(routingKey, roomID string, data messaging.RoomEventData) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal room event: %v", err)
		return
	}

	err = p.rabbitmq.PublishMessage(context.Background(), routingKey, contracts.AmqpMessage{
		RoomID: roomID,
		Data:   payload,
	})
	if err != nil {
		log.Printf("failed to publish %s for room %s: %v", routingKey, roomID, err)
	}
}

func (p *RoomPublisher) RoomCreated(roomID, createdBy string) {
	p.publish(contracts.EventRoomCreated, roomID, messaging.RoomEventData{
		RoomID: roomID,
		UserID: createdBy,
	})
}

func (p *RoomPublisher) RoomDeleted(roomID, reason string) {
	p.publish(contracts.EventRoomDeleted, roomID, messaging.RoomEventData{
		RoomID: roomID,
		Reason: reason,
	})
}

func (p *RoomPublisher) MemberJoined(roomID, userID string, memberCount int) {
	p.publish(contracts.EventMemberJoined, roomID, messaging.RoomEventData{
		RoomID:      roomID,
		UserID:      userID,
		MemberCount: memberCount,
	})
}

func (p *RoomPublisher) MemberLeft(roomID, userID string, memberCount int) {
	p.publish(contracts.EventMemberLeft, roomID, messaging.RoomEventData{
		RoomID:      roomID,
		UserID:      userID,
		MemberCount: memberCount,
	})
}
