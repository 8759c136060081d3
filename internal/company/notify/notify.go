// Package notify announces company changes to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"orgprofile/internal/platform/kafka/producer"
)

// ErrNeverCreated is returned for records that carry no provenance timestamp.
var ErrNeverCreated = errors.New("company has not been created")

const eventType = "company.changed"

// Event is the payload of one change notification.
type Event struct {
	OrganisationCode string            `json:"organisation_code"`
	Data             map[string]string `json:"data"`
	LastModifiedAt   time.Time         `json:"last_modified_at"`
}

// Notifier publishes one event per company change.
type Notifier interface {
	Publish(ctx context.Context, code string, fields map[string]string, lastModifiedAt *time.Time) error
}

// Publisher is the transport used by KafkaNotifier.
type Publisher interface {
	Produce(ctx context.Context, msg producer.Message) error
}

// KafkaNotifier publishes events keyed by organisation code so changes to one
// company stay ordered on a single partition.
type KafkaNotifier struct {
	publisher Publisher
	topic     string
}

func NewKafka(publisher Publisher, topic string) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: topic}
}

func (n *KafkaNotifier) Publish(ctx context.Context, code string, fields map[string]string, lastModifiedAt *time.Time) error {
	event, err := newEvent(code, fields, lastModifiedAt)
	if err != nil {
		return err
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode company event: %w", err)
	}
	return n.publisher.Produce(ctx, producer.Message{
		Topic:   n.topic,
		Key:     []byte(code),
		Value:   value,
		Headers: map[string]string{"event_type": eventType},
	})
}

// Recorder keeps published events in memory. It backs deployments without a broker.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, code string, fields map[string]string, lastModifiedAt *time.Time) error {
	event, err := newEvent(code, fields, lastModifiedAt)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func newEvent(code string, fields map[string]string, lastModifiedAt *time.Time) (Event, error) {
	if lastModifiedAt == nil {
		return Event{}, fmt.Errorf("publish %s: %w", code, ErrNeverCreated)
	}
	return Event{OrganisationCode: code, Data: fields, LastModifiedAt: lastModifiedAt.UTC()}, nil
}
