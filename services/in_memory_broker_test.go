package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deathpool-service/database"
)

func TestInMemoryBrokerDelivers(t *testing.T) {
	broker := NewInMemoryBroker(4)
	defer broker.Close()

	messages, err := broker.Consume(LiveVoteTopic)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	sent := BrokerMessage{Topic: LiveVoteTopic, Key: "sess-a", Value: []byte(`{"show_id":1}`)}
	if err := broker.Produce(sent); err != nil {
		t.Fatalf("produce: %v", err)
	}

	select {
	case got := <-messages:
		if got.Key != "sess-a" {
			t.Errorf("expected key sess-a, got %q", got.Key)
		}
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestInMemoryBrokerDropsWhenFull(t *testing.T) {
	broker := NewInMemoryBroker(1)
	defer broker.Close()

	if _, err := broker.Consume(LiveVoteTopic); err != nil {
		t.Fatalf("consume: %v", err)
	}

	// Nobody draining: the second publish must not block.
	msg := BrokerMessage{Topic: LiveVoteTopic, Value: []byte("{}")}
	done := make(chan bool)
	go func() {
		_ = broker.Produce(msg)
		_ = broker.Produce(msg)
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("produce blocked on a full queue")
	}
}

func TestVoteWorkerRecordsQueuedVotes(t *testing.T) {
	f := newFixture(t)
	show, _ := f.seedShow(t, 2)
	ids := f.seedSuggestions(t, "actions", "juggles knives")

	vt, err := f.catalog.GetType("incident")
	require.NoError(t, err)

	broker := NewInMemoryBroker(16)
	worker := NewVoteWorker(broker, f.liveVotes, nil)
	go worker.Start()
	defer worker.Stop()

	payload, err := json.Marshal(QueuedVote{
		ShowID:       show.ID,
		VoteTypeID:   vt.ID,
		Interval:     database.NoInterval,
		SuggestionID: &ids[0],
		SessionID:    "sess-a",
	})
	require.NoError(t, err)
	require.NoError(t, broker.Produce(BrokerMessage{
		Topic: LiveVoteTopic,
		Key:   "sess-a",
		Value: payload,
	}))

	require.Eventually(t, func() bool {
		total, err := f.liveVotes.TotalCount(show.ID, vt.ID, database.NoInterval)
		return err == nil && total == 1
	}, 2*time.Second, 20*time.Millisecond)
}
