package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sifan077/linkqr/internal/app/model"
)

// ClickPublisher publishes redirect events to NATS JetStream for downstream consumers.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a click event publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// EnsureStream creates the click stream when it does not exist yet.
func (p *ClickPublisher) EnsureStream() error {
	if _, err := p.js.StreamInfo(model.ClickStreamName); err == nil {
		return nil
	}
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     model.ClickStreamName,
		Subjects: []string{model.ClickStreamSubject},
		MaxBytes: model.ClickStreamMaxBytes,
	})
	if err != nil {
		return fmt.Errorf("create click stream: %w", err)
	}
	return nil
}

// Publish sends one click event for shortCode.
func (p *ClickPublisher) Publish(shortCode, ip, userAgent string) error {
	data, err := json.Marshal(model.ClickEvent{
		ID:        uuid.New().String(),
		ShortCode: shortCode,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
