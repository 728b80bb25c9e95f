package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/domain"
	"github.com/remodely/auth-service/internal/core/port"
	"github.com/remodely/auth-service/internal/infra/config"
	"github.com/remodely/auth-service/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string          `json:"user_id"`
		Name         string          `json:"name"`
		Email        string          `json:"email"`
		Phone        string          `json:"phone"`
		UserType     domain.UserType `json:"user_type"`
		RegisteredAt time.Time       `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Name:         event.Name,
		Email:        logger.MaskEmail(event.Email),
		Phone:        logger.MaskPhone(event.Phone),
		UserType:     event.UserType,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserLoggedIn publishes auth.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		LoggedInAt time.Time `json:"logged_in_at"`
		IPAddress  string    `json:"ip_address,omitempty"`
	}{
		UserID:     event.UserID,
		LoggedInAt: event.LoggedInAt.UTC(),
		IPAddress:  logger.MaskIP(event.IPAddress),
	}

	return p.publish(ctx, event.EventID, "user.logged_in", event.UserID, event.LoggedInAt, payload)
}

// PublishPhoneVerified publishes auth.phone.verified events.
func (p *EventPublisher) PublishPhoneVerified(ctx context.Context, event domain.PhoneVerifiedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Phone      string    `json:"phone"`
		VerifiedAt time.Time `json:"verified_at"`
	}{
		UserID:     event.UserID,
		Phone:      logger.MaskPhone(event.Phone),
		VerifiedAt: event.VerifiedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "phone.verified", event.UserID, event.VerifiedAt, payload)
}

// PublishStoreLinked publishes auth.store.linked events.
func (p *EventPublisher) PublishStoreLinked(ctx context.Context, event domain.StoreLinkedEvent) error {
	payload := struct {
		StoreID     string    `json:"store_id"`
		StoreDomain string    `json:"store_domain"`
		OwnerUserID string    `json:"owner_user_id"`
		LinkedAt    time.Time `json:"linked_at"`
	}{
		StoreID:     event.StoreID,
		StoreDomain: event.StoreDomain,
		OwnerUserID: event.OwnerUserID,
		LinkedAt:    event.LinkedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "store.linked", event.OwnerUserID, event.LinkedAt, payload)
}

// PublishStoreDisconnected publishes auth.store.disconnected events.
func (p *EventPublisher) PublishStoreDisconnected(ctx context.Context, event domain.StoreDisconnectedEvent) error {
	payload := struct {
		StoreID        string    `json:"store_id"`
		StoreDomain    string    `json:"store_domain"`
		OwnerUserID    string    `json:"owner_user_id"`
		DisconnectedAt time.Time `json:"disconnected_at"`
	}{
		StoreID:        event.StoreID,
		StoreDomain:    event.StoreDomain,
		OwnerUserID:    event.OwnerUserID,
		DisconnectedAt: event.DisconnectedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "store.disconnected", event.OwnerUserID, event.DisconnectedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
