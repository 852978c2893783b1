package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the product-visible state of a tenant-provider link.
type ConnectionStatus string

const (
	ConnectionStatusConnected         ConnectionStatus = "connected"
	ConnectionStatusReconnectRequired ConnectionStatus = "reconnect_required"
	ConnectionStatusDisconnected      ConnectionStatus = "disconnected"
)

// Connection mirrors a credential's validity for UI and business code. It is
// deliberately kept outside the vault's trust boundary: it carries no secret
// material, only the account identity and display state.
type Connection struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Provider Provider
	// AccountID is the provider-side account identifier (e.g. a Google
	// Business Profile account or a WhatsApp Business Account id).
	AccountID string
	// DisplayName is the human-readable account name shown in the dashboard.
	DisplayName string
	Status      ConnectionStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
