// Package kafka streams audit events to a Kafka topic for downstream
// consumers. It is a sink, not a queryable store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stampd/internal/platform/kafka/producer"
	"stampd/pkg/platform/audit"
)

// Store implements audit.Store by producing one JSON message per event,
// keyed by address hash so a subject's trail stays in partition order.
type Store struct {
	producer *producer.Producer
	topic    string
}

// New builds a Store over a producer and topic.
func New(p *producer.Producer, topic string) *Store {
	return &Store{producer: p, topic: topic}
}

type wireEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        string    `json:"action"`
	Provider      string    `json:"provider,omitempty"`
	AddressHash   string    `json:"address_hash,omitempty"`
	SignatureType string    `json:"signature_type,omitempty"`
	Decision      string    `json:"decision,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	ClientUA      string    `json:"client_ua,omitempty"`
}

// Append implements audit.Store.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(wireEvent{
		Timestamp:     event.Timestamp,
		Action:        string(event.Action),
		Provider:      event.Provider,
		AddressHash:   event.AddressHash,
		SignatureType: event.SignatureType,
		Decision:      event.Decision,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
		ClientUA:      event.ClientUA,
	})
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.AddressHash),
		Value: value,
	})
}
