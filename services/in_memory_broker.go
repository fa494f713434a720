package services

import (
	"sync"

	"deathpool-service/logger"
)

// InMemoryBroker is the MessageBroker used when no AMQP server is
// configured: a buffered channel per topic inside the process.
type InMemoryBroker struct {
	consumers map[string][]chan BrokerMessage
	buffer    int
	mu        sync.RWMutex
}

func NewInMemoryBroker(buffer int) *InMemoryBroker {
	if buffer <= 0 {
		buffer = 1000
	}
	return &InMemoryBroker{
		consumers: make(map[string][]chan BrokerMessage),
		buffer:    buffer,
	}
}

// Produce delivers the message to the topic's first consumer. A full
// consumer channel drops the message rather than blocking the caller.
func (b *InMemoryBroker) Produce(msg BrokerMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	consumerChans, ok := b.consumers[msg.Topic]
	if !ok || len(consumerChans) == 0 {
		logger.Printf("[InMemoryBroker] Topic %s has no consumers, message dropped", msg.Topic)
		return nil
	}

	select {
	case consumerChans[0] <- msg:
	default:
		logger.Printf("[InMemoryBroker] Topic %s consumer channel full, message dropped", msg.Topic)
	}
	return nil
}

// Consume registers a new consumer channel for the topic.
func (b *InMemoryBroker) Consume(topic string) (<-chan BrokerMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	consumerChan := make(chan BrokerMessage, b.buffer)
	b.consumers[topic] = append(b.consumers[topic], consumerChan)

	logger.Printf("[InMemoryBroker] Consumer subscribed to topic %s (total: %d)",
		topic, len(b.consumers[topic]))
	return consumerChan, nil
}

// Close closes every consumer channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, chans := range b.consumers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.consumers = make(map[string][]chan BrokerMessage)
	return nil
}
