package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// dialFunc открывает соединение и канал с объявленным exchange
type dialFunc func() (Channel, io.Closer, error)

// Publisher публикует события в topic exchange RabbitMQ.
// После разрыва соединения (например, перезапуска брокера) переподключается
// при следующей публикации.
type Publisher struct {
	mu       sync.Mutex
	dial     dialFunc
	conn     io.Closer
	ch       Channel
	exchange string
}

// NewPublisher подключается к брокеру и объявляет exchange
func NewPublisher(url, exchange string) (*Publisher, error) {
	dial := func() (Channel, io.Closer, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%w: open channel: %v", ErrConnect, err)
		}
		if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, nil, fmt.Errorf("%w: declare exchange: %v", ErrConnect, err)
		}
		return ch, conn, nil
	}

	return newPublisherWithDialer(dial, exchange)
}

func newPublisherWithDialer(dial dialFunc, exchange string) (*Publisher, error) {
	ch, conn, err := dial()
	if err != nil {
		return nil, err
	}
	return &Publisher{dial: dial, conn: conn, ch: ch, exchange: exchange}, nil
}

// NewPublisherWithChannel создает публикатор поверх готового канала (без переподключения)
func NewPublisherWithChannel(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish сериализует v в JSON и публикует с ключом key.
// При ошибке публикации один раз переподключается и повторяет отправку.
func (p *Publisher) Publish(ctx context.Context, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPublish, key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Предыдущее переподключение не удалось
	if p.ch == nil {
		if err := p.reconnect(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPublish, key, err)
		}
	}

	err = p.publish(ctx, key, body)
	if err != nil && p.dial != nil {
		if reconnectErr := p.reconnect(); reconnectErr != nil {
			return fmt.Errorf("%w: %s: %v (reconnect: %v)", ErrPublish, key, err, reconnectErr)
		}
		err = p.publish(ctx, key, body)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublish, key, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, key string, body []byte) error {
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// reconnect закрывает старое соединение и открывает новое; вызывается под p.mu
func (p *Publisher) reconnect() error {
	if p.dial == nil {
		return ErrConnect
	}
	p.closeConn()

	ch, conn, err := p.dial()
	if err != nil {
		return err
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) closeConn() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close закрывает канал и соединение
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	return err
}

// NoopPublisher используется, когда события отключены
type NoopPublisher struct{}

// Publish ничего не делает
func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }

// Close ничего не делает
func (NoopPublisher) Close() error { return nil }
