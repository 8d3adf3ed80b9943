package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader returns queued fetch errors, then serves queued messages, then
// cancels the run.
type fakeReader struct {
	mu        sync.Mutex
	fetchErrs []error
	messages  []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		return kafka.Message{}, err
	}
	if len(r.messages) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func message(t *testing.T, offset int64, event Event) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(event.CompanyID.String()), Value: value}
}

func TestConsumer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, second := testEvent(), testEvent().With(KeyStatus, "active")
	reader := &fakeReader{
		messages: []kafka.Message{message(t, 1, first), message(t, 2, second)},
		cancel:   cancel,
	}
	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.newBackOff = noWait

	var handled []Event
	consumer.RegisterHandler(func(_ context.Context, e Event) error {
		handled = append(handled, e)
		return nil
	})

	require.NoError(t, consumer.Run(ctx))
	require.Len(t, handled, 2)
	assert.Equal(t, first.ID, handled[0].ID)
	assert.Equal(t, "active", handled[1].String(KeyStatus))
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_RetriesThenCommits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, recorded := observer.New(zap.ErrorLevel)
	reader := &fakeReader{
		messages: []kafka.Message{
			{Offset: 7, Value: []byte("not json")},
			message(t, 8, testEvent()),
		},
		cancel: cancel,
	}
	consumer := newConsumer(reader, zap.New(core))
	consumer.newBackOff = noWait

	calls := 0
	consumer.RegisterHandler(func(context.Context, Event) error {
		calls++
		return errors.New("database unavailable")
	})

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, maxHandleRetries+1, calls)
	assert.Equal(t, []int64{7, 8}, reader.committed, "poison and failing messages are still committed")
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
}

// countingBackOff never waits and counts how often it was asked.
type countingBackOff struct {
	waits, resets int
}

func (b *countingBackOff) NextBackOff() time.Duration {
	b.waits++
	return 0
}

func (b *countingBackOff) Reset() { b.resets++ }

func TestConsumer_FetchErrorsBackOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, recorded := observer.New(zap.ErrorLevel)
	brokerDown := errors.New("dial tcp: connection refused")
	reader := &fakeReader{
		fetchErrs: []error{brokerDown, brokerDown},
		messages:  []kafka.Message{message(t, 3, testEvent())},
		cancel:    cancel,
	}
	consumer := newConsumer(reader, zap.New(core))
	consumer.newBackOff = noWait
	retry := &countingBackOff{}
	consumer.fetchBackOff = func() backoff.BackOff { return retry }

	handled := 0
	consumer.RegisterHandler(func(context.Context, Event) error {
		handled++
		return nil
	})

	require.NoError(t, consumer.Run(ctx))
	assert.Equal(t, 1, handled)
	assert.Equal(t, []int64{3}, reader.committed)
	assert.Equal(t, 2, retry.waits)
	assert.Equal(t, 1, retry.resets, "a successful fetch resets the backoff")
	assert.Equal(t, 2, recorded.FilterMessage("Failed to fetch message").Len())
}

func TestConsumer_StopsWhenReaderCloses(t *testing.T) {
	reader := &fakeReader{fetchErrs: []error{io.EOF}}
	consumer := newConsumer(reader, zaptest.NewLogger(t))
	consumer.RegisterHandler(func(context.Context, Event) error {
		t.Error("no message should be handled")
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- consumer.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept polling a closed reader")
	}
}

func TestConsumer_RequiresHandler(t *testing.T) {
	consumer := newConsumer(&fakeReader{}, zaptest.NewLogger(t))
	assert.Error(t, consumer.Run(context.Background()))
}
