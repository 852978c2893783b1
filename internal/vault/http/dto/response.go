// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// ConnectionResponse represents a tenant-provider connection in API responses.
// It carries display state only; credential material never appears here.
type ConnectionResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	AccountID   string    `json:"account_id"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapConnectionToResponse converts a domain connection to an API response.
func MapConnectionToResponse(connection *vaultDomain.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:          connection.ID.String(),
		Provider:    string(connection.Provider),
		AccountID:   connection.AccountID,
		DisplayName: connection.DisplayName,
		Status:      string(connection.Status),
		CreatedAt:   connection.CreatedAt,
		UpdatedAt:   connection.UpdatedAt,
	}
}

// ListConnectionsResponse represents a paginated list of connections.
type ListConnectionsResponse struct {
	Data []ConnectionResponse `json:"data"`
}

// MapConnectionsToListResponse converts a slice of domain connections to a list API response.
func MapConnectionsToListResponse(connections []*vaultDomain.Connection) ListConnectionsResponse {
	connectionResponses := make([]ConnectionResponse, 0, len(connections))
	for _, connection := range connections {
		connectionResponses = append(connectionResponses, MapConnectionToResponse(connection))
	}
	return ListConnectionsResponse{
		Data: connectionResponses,
	}
}
