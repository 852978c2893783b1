// Package http provides HTTP handlers for the connections API. The API is
// read-only and exposes only the non-secret connection mirrors; credential
// material never crosses this boundary.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/httputil"
	"github.com/connectkit/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/connectkit/credvault/internal/vault/usecase"
)

// ConnectionHandler handles HTTP requests for connection listing.
type ConnectionHandler struct {
	credentialUseCase vaultUseCase.CredentialUseCase
	logger            *slog.Logger
}

// NewConnectionHandler creates a new connection handler with required dependencies.
func NewConnectionHandler(
	credentialUseCase vaultUseCase.CredentialUseCase,
	logger *slog.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		credentialUseCase: credentialUseCase,
		logger:            logger,
	}
}

// ListHandler retrieves a tenant's connections with pagination support.
// GET /v1/tenants/:tenant_id/connections?offset=0&limit=50
// Returns 200 OK with the tenant's connection mirrors. Dashboards use the
// status field to surface the "reconnect required" state.
func (h *ConnectionHandler) ListHandler(c *gin.Context) {
	tenantID, err := uuid.Parse(c.Param("tenant_id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid tenant_id: must be a valid UUID"),
			h.logger,
		)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	connections, err := h.credentialUseCase.ListConnections(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapConnectionsToListResponse(connections)
	c.JSON(http.StatusOK, response)
}
