package events

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel подмножество *amqp.Channel, используемое публикатором
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}
