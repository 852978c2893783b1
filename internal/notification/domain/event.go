// Package domain defines the notification event entity used by the
// transactional outbox.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the delivery state of a notification event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusProcessed EventStatus = "processed"
	EventStatusFailed    EventStatus = "failed"
)

// Event is a tenant-visible lifecycle notification written in the same
// transaction as the state change it announces. The payload is a JSON
// document of failure categories and identifiers, never secret material.
type Event struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	EventType   string
	Payload     string
	Status      EventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
