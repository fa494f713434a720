package services

// BrokerMessage carries one queued unit of work.
type BrokerMessage struct {
	Topic string
	Key   string // session id or other correlation key
	Value []byte // JSON payload
}

// MessageBroker abstracts the queue that decouples vote submission from
// tally persistence. Clients get an immediate ack; the worker drains the
// topic out-of-band.
type MessageBroker interface {
	// Produce sends a message to a topic.
	Produce(msg BrokerMessage) error
	// Consume subscribes to a topic and returns its message channel.
	Consume(topic string) (<-chan BrokerMessage, error)
	// Close shuts the broker down.
	Close() error
}

// LiveVoteTopic is the queue topic for live vote recording.
const LiveVoteTopic = "deathpool-live-votes"
