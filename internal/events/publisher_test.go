package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGoChannelPublisher_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := NewGoChannelPublisher("academia.activity", zerolog.Nop())
	defer pub.Close()

	messages, err := pub.Subscriber().Subscribe(ctx, pub.Topic())
	require.NoError(t, err)

	sent := NewActivity(ActivityUserApproved, 12, "frank").WithRole("STUDENT").WithActor(1)
	require.NoError(t, pub.Publish(ctx, sent))

	select {
	case msg := <-messages:
		got, err := Decode(msg)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, sent.ID, msg.UUID)
		assert.Equal(t, string(ActivityUserApproved), msg.Metadata.Get("event_type"))
		assert.Equal(t, Source, msg.Metadata.Get("source"))
		assert.Equal(t, int64(12), got.UserID)
		assert.Equal(t, "STUDENT", got.Role)
		assert.Equal(t, int64(1), got.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("activity not delivered")
	}
}

type failingPublisher struct {
	mock.Mock
}

func (m *failingPublisher) Publish(ctx context.Context, activity *Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *failingPublisher) Close() error { return nil }

func TestEmit_SwallowsErrors(t *testing.T) {
	pub := new(failingPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*events.Activity")).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		Emit(context.Background(), pub, zerolog.Nop(), NewActivity(ActivityLoginFailed, 0, "ghost"))
	})
	pub.AssertNumberOfCalls(t, "Publish", 1)

	// A nil publisher is a no-op.
	Emit(context.Background(), nil, zerolog.Nop(), NewActivity(ActivityLoginFailed, 0, "ghost"))
}

func TestRecordingPublisher(t *testing.T) {
	rec := NewRecordingPublisher()
	ctx := context.Background()

	require.NoError(t, rec.Publish(ctx, NewActivity(ActivityUserRegistered, 1, "a")))
	require.NoError(t, rec.Publish(ctx, NewActivity(ActivityUserApproved, 1, "a").WithMeta("department", "CSE")))

	assert.Equal(t, []ActivityType{ActivityUserRegistered, ActivityUserApproved}, rec.Types())
	assert.Equal(t, "CSE", rec.Events()[1].Metadata["department"])
}
