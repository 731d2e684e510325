package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/config"
)

// Publisher publishes activity events.
type Publisher interface {
	Publish(ctx context.Context, activity *Activity) error
	Close() error
}

// WatermillPublisher implements Publisher on top of a watermill message.Publisher.
type WatermillPublisher struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     zerolog.Logger
}

// NewGoChannelPublisher creates an in-process publisher. Its Subscriber can be
// used to consume the events inside the same process.
func NewGoChannelPublisher(topic string, logger zerolog.Logger) *WatermillPublisher {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(logger))

	return &WatermillPublisher{
		publisher:  pubSub,
		subscriber: pubSub,
		topic:      topic,
		logger:     logger.With().Str("component", "events").Logger(),
	}
}

// NewKafkaPublisher creates a Kafka-backed publisher.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewWatermillLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With().Str("component", "events").Logger(),
	}, nil
}

// NewPublisher creates the publisher selected by cfg.Driver.
func NewPublisher(cfg config.EventsConfig, logger zerolog.Logger) (*WatermillPublisher, error) {
	switch cfg.Driver {
	case "kafka":
		logger.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("creating Kafka activity publisher")
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger)
	case "gochannel", "":
		return NewGoChannelPublisher(cfg.Topic, logger), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Topic returns the topic events are published on.
func (p *WatermillPublisher) Topic() string {
	return p.topic
}

// Subscriber returns the in-process subscriber, or nil for external brokers.
func (p *WatermillPublisher) Subscriber() message.Subscriber {
	return p.subscriber
}

// Publish marshals the activity to JSON and publishes it.
func (p *WatermillPublisher) Publish(ctx context.Context, activity *Activity) error {
	payload, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity: %w", err)
	}

	msg := message.NewMessage(activity.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(activity.Type))
	msg.Metadata.Set("source", Source)
	msg.Metadata.Set("timestamp", activity.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish activity: %w", err)
	}

	p.logger.Debug().
		Str("event_id", activity.ID).
		Str("event_type", string(activity.Type)).
		Str("topic", p.topic).
		Msg("published activity")

	return nil
}

// Close closes the underlying publisher.
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// =============================================================================
// Helpers
// =============================================================================

// Emit publishes activity and logs, rather than returns, any failure.
// A nil publisher drops the event.
func Emit(ctx context.Context, publisher Publisher, logger zerolog.Logger, activity *Activity) {
	if publisher == nil || activity == nil {
		return
	}
	if err := publisher.Publish(ctx, activity); err != nil {
		logger.Warn().
			Err(err).
			Str("event_type", string(activity.Type)).
			Int64("user_id", activity.UserID).
			Msg("failed to publish activity")
	}
}

// Decode parses an activity from a watermill message.
func Decode(msg *message.Message) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(msg.Payload, &activity); err != nil {
		return nil, fmt.Errorf("failed to decode activity %s: %w", msg.UUID, err)
	}
	return &activity, nil
}

// LogSink consumes activities from subscriber and writes them to logger until
// ctx is canceled.
func LogSink(ctx context.Context, subscriber message.Subscriber, topic string, logger zerolog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			activity, err := Decode(msg)
			if err != nil {
				logger.Warn().Err(err).Msg("dropping malformed activity")
				msg.Ack()
				continue
			}

			logger.Info().
				Str("event_type", string(activity.Type)).
				Int64("user_id", activity.UserID).
				Str("username", activity.Username).
				Str("role", activity.Role).
				Str("reason", activity.Reason).
				Msg("activity")
			msg.Ack()
		}
	}()

	return nil
}

// RecordingPublisher keeps published activities in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Activity
}

// NewRecordingPublisher creates an empty RecordingPublisher.
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records the activity.
func (r *RecordingPublisher) Publish(_ context.Context, activity *Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *activity)
	return nil
}

// Close is a no-op.
func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of the recorded activities.
func (r *RecordingPublisher) Events() []Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Activity, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded activity types in publish order.
func (r *RecordingPublisher) Types() []ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ActivityType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// =============================================================================
// Logger adapter
// =============================================================================

// watermillLogger adapts zerolog to watermill.LoggerAdapter.
type watermillLogger struct {
	logger zerolog.Logger
}

// NewWatermillLogger wraps a zerolog logger for watermill.
func NewWatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return &watermillLogger{logger: logger.With().Str("component", "watermill").Logger()}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.logger.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.logger.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.logger.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.logger.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{logger: l.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

// Ensure the publishers implement Publisher.
var (
	_ Publisher = (*WatermillPublisher)(nil)
	_ Publisher = (*RecordingPublisher)(nil)
)
