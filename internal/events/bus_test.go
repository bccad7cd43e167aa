package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
	err         error
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if s.err != nil {
		return Event{}, s.err
	}
	s.lastTopic = topic
	s.lastPayload = payload
	return Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}, nil
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &stubStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), TopicTransactionCommitted, uuid.New(), map[string]any{"total": 1200})
	require.NoError(t, err)
	require.Equal(t, TopicTransactionCommitted, store.lastTopic)
	require.JSONEq(t, `{"total":1200}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, ev.ID, notifier.events[0].ID)
}

func TestEmitRequiresTopicAndAggregate(t *testing.T) {
	bus := &Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), "  ", uuid.New(), nil)
	require.Error(t, err)
	_, err = bus.Emit(context.Background(), TopicStageCleared, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitNotifierFailureDoesNotUndoEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &recordingNotifier{err: errors.New("boom")}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	ev, err := bus.Emit(context.Background(), TopicStageCleared, uuid.New(), nil)
	require.Error(t, err)
	require.NotEqual(t, uuid.Nil, ev.ID)
	require.Equal(t, TopicStageCleared, store.lastTopic)
}

func TestEmitRejectsInvalidRawJSON(t *testing.T) {
	bus := &Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), TopicStageCleared, uuid.New(), []byte("{not json"))
	require.Error(t, err)
}
