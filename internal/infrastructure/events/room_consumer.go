package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/rabbitmq/amqp091-go"

	"castrelay/internal/domain"
	"castrelay/internal/infrastructure/contracts"
	"castrelay/internal/infrastructure/messaging"
)

// RoomConsumer drains room lifecycle events off the queue and writes audit
// log entries. Audit persistence is optional; with a nil repository the
// consumer only logs.
type RoomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
	}
}

func (c *RoomConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("failed to unmarshal amqp message: %v", err)
			return err
		}

		var data messaging.RoomEventData
		if err := json.Unmarshal(message.Data, &data); err != nil {
			log.Printf("failed to unmarshal room event data: %v", err)
			return err
		}

		if c.audit == nil {
			log.Printf("room event %s: %+v", msg.RoutingKey, data)
			return nil
		}

		entry := c.entryFor(msg.RoutingKey, data)
		if entry == nil {
			log.Printf("unknown room event routing key: %s", msg.RoutingKey)
			return nil
		}

		return c.audit.Log(ctx, entry)
	})
}

func (c *RoomConsumer) entryFor(routingKey string, data messaging.RoomEventData) *domain.RoomAuditLog {
	switch routingKey {
	case contracts.EventRoomCreated:
		return domain.NewRoomCreatedLog(data.RoomID, data.UserID)
	case contracts.EventRoomDeleted:
		return domain.NewRoomDeletedLog(data.RoomID, data.Reason)
	case contracts.EventMemberJoined:
		return domain.NewMemberJoinedLog(data.RoomID, data.UserID, data.MemberCount)
	case contracts.EventMemberLeft:
		return domain.NewMemberLeftLog(data.RoomID, data.UserID, data.MemberCount)
	default:
		return nil
	}
}
