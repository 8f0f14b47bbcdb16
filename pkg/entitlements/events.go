package entitlements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultEventsChannel is the Redis channel entitlement changes are published on
const DefaultEventsChannel = "skillgate:entitlements"

// EventType names an administrative change
type EventType string

const (
	EventIssued      EventType = "issued"
	EventSuspended   EventType = "suspended"
	EventReactivated EventType = "reactivated"
	EventRevoked     EventType = "revoked"
)

// Event describes a change to an entitlement
type Event struct {
	Type           EventType  `json:"type"`
	EntitlementID  string     `json:"entitlement_id"`
	CustomerID     string     `json:"customer_id"`
	SkillPackageID string     `json:"skill_package_id"`
	Status         Status     `json:"status,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

func newEvent(t EventType, e *SkillEntitlement, at time.Time) Event {
	return Event{
		Type:           t,
		EntitlementID:  e.ID,
		CustomerID:     e.CustomerID,
		SkillPackageID: e.SkillPackageID,
		Status:         e.Status,
		ExpiresAt:      e.ExpiresAt,
		OccurredAt:     at,
	}
}

// Publisher notifies other processes of entitlement changes
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}

// RedisPublisher publishes events as JSON on a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on channel, defaulting to DefaultEventsChannel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish implements Publisher
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}
