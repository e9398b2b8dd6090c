package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kvanc/server/internal/dto"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const rabbitReconnectDelay = 5 * time.Second

type rabbitResultClient struct {
	url      string
	exchange string

	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
	mutex   sync.RWMutex
}

// NewRabbitMQClient publishes result snapshots to a durable fanout exchange
// and reconnects in the background when the broker drops the connection.
func NewRabbitMQClient(config dto.Config) (ResultClient, error) {
	r := &rabbitResultClient{
		url:      config.RabbitMQURL,
		exchange: config.RabbitMQExchange,
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

// connect dials the broker, declares the exchange and starts watching the new connection.
func (r *rabbitResultClient) connect() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := channel.ExchangeDeclare(r.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return err
	}

	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		channel.Close()
		return conn.Close()
	}
	previous := r.channel
	r.conn, r.channel = conn, channel
	r.mutex.Unlock()

	if previous != nil {
		previous.Close()
	}

	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

func (r *rabbitResultClient) watch(closeNotify <-chan *amqp.Error) {
	reason, ok := <-closeNotify
	if !ok || reason == nil {
		return
	}
	logrus.WithField("exchange", r.exchange).Errorf("Lost RabbitMQ connection: %v", reason)

	for !r.isClosed() {
		time.Sleep(rabbitReconnectDelay)
		if r.isClosed() {
			return
		}

		if err := r.connect(); err != nil {
			logrus.Warnf("RabbitMQ reconnect failed, retrying in %s: %v", rabbitReconnectDelay, err)
			continue
		}
		logrus.Info("Reconnected to RabbitMQ")
		return
	}
}

func (r *rabbitResultClient) isClosed() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.closed
}

func (r *rabbitResultClient) Name() string {
	return "rabbitmq"
}

func (r *rabbitResultClient) PublishMessage(ctx context.Context, message []byte) error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.closed {
		return fmt.Errorf("%w: rabbitmq client closed", dto.ErrInternalFailure)
	}

	return r.channel.PublishWithContext(ctx, r.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        message,
	})
}

func (r *rabbitResultClient) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.channel != nil {
		r.channel.Close()
	}
	return r.conn.Close()
}
