package services

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"deathpool-service/logger"
)

// AMQPBroker is the MessageBroker backed by an AMQP server, for
// deployments where vote recording should survive the web process. One
// durable queue per topic.
type AMQPBroker struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

func NewAMQPBroker(url string) (*AMQPBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	logger.Printf("[AMQPBroker] Connected to %s", url)
	return &AMQPBroker{url: url, conn: conn, channel: channel}, nil
}

func (b *AMQPBroker) declareQueue(topic string) error {
	_, err := b.channel.QueueDeclare(
		topic,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	return nil
}

// Produce publishes the message onto the topic queue.
func (b *AMQPBroker) Produce(msg BrokerMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.declareQueue(msg.Topic); err != nil {
		return err
	}
	err := b.channel.Publish(
		"",        // default exchange
		msg.Topic, // routing key = queue
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: msg.Key,
			Body:          msg.Value,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", msg.Topic, err)
	}
	return nil
}

// Consume subscribes to the topic queue and adapts deliveries onto a
// BrokerMessage channel.
func (b *AMQPBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.declareQueue(topic); err != nil {
		return nil, err
	}
	deliveries, err := b.channel.Consume(
		topic,
		"",    // consumer tag
		true,  // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", topic, err)
	}

	out := make(chan BrokerMessage)
	go func() {
		defer close(out)
		for d := range deliveries {
			out <- BrokerMessage{
				Topic: topic,
				Key:   d.CorrelationId,
				Value: d.Body,
			}
		}
	}()
	return out, nil
}

// Close shuts down the channel and connection.
func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
