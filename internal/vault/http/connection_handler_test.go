package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "github.com/connectkit/credvault/internal/errors"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/http/dto"
	"github.com/connectkit/credvault/internal/vault/http/mocks"
)

// setupTestConnectionHandler creates a test handler with mocked dependencies.
func setupTestConnectionHandler(t *testing.T) (*ConnectionHandler, *mocks.MockCredentialUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockCredentialUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewConnectionHandler(mockUseCase, logger)

	return handler, mockUseCase
}

// createTestContext creates a test Gin context with the given request.
func createTestContext(method, path, tenantID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest(method, path, nil)
	c.Params = gin.Params{{Key: "tenant_id", Value: tenantID}}

	return c, w
}

func TestConnectionHandler_ListHandler(t *testing.T) {
	t.Run("Success_DefaultPagination", func(t *testing.T) {
		handler, mockUseCase := setupTestConnectionHandler(t)

		tenantID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		connections := []*vaultDomain.Connection{
			{
				ID:          uuid.Must(uuid.NewV7()),
				TenantID:    tenantID,
				Provider:    vaultDomain.ProviderGoogle,
				AccountID:   "accounts/123",
				DisplayName: "Acme Main Office",
				Status:      vaultDomain.ConnectionStatusConnected,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			{
				ID:          uuid.Must(uuid.NewV7()),
				TenantID:    tenantID,
				Provider:    vaultDomain.ProviderWhatsApp,
				AccountID:   "waba-456",
				DisplayName: "Acme WhatsApp",
				Status:      vaultDomain.ConnectionStatusReconnectRequired,
				CreatedAt:   now.Add(-time.Hour),
				UpdatedAt:   now,
			},
		}

		mockUseCase.On("ListConnections", mock.Anything, tenantID, 0, 50).
			Return(connections, nil).
			Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/tenants/"+tenantID.String()+"/connections",
			tenantID.String(),
		)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListConnectionsResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Data, 2)
		assert.Equal(t, "google", response.Data[0].Provider)
		assert.Equal(t, "connected", response.Data[0].Status)
		assert.Equal(t, "whatsapp", response.Data[1].Provider)
		assert.Equal(t, "reconnect_required", response.Data[1].Status)
		assert.Equal(t, "waba-456", response.Data[1].AccountID)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_CustomPagination", func(t *testing.T) {
		handler, mockUseCase := setupTestConnectionHandler(t)

		tenantID := uuid.Must(uuid.NewV7())

		mockUseCase.On("ListConnections", mock.Anything, tenantID, 10, 25).
			Return([]*vaultDomain.Connection{}, nil).
			Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/tenants/"+tenantID.String()+"/connections?offset=10&limit=25",
			tenantID.String(),
		)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListConnectionsResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Data, 0)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidTenantID", func(t *testing.T) {
		handler, mockUseCase := setupTestConnectionHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/tenants/not-a-uuid/connections", "not-a-uuid")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Contains(t, response["error"], "validation_error")

		mockUseCase.AssertNotCalled(t, "ListConnections")
	})

	t.Run("Error_InvalidLimit", func(t *testing.T) {
		handler, mockUseCase := setupTestConnectionHandler(t)

		tenantID := uuid.Must(uuid.NewV7())

		c, w := createTestContext(
			http.MethodGet,
			"/v1/tenants/"+tenantID.String()+"/connections?limit=500",
			tenantID.String(),
		)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		mockUseCase.AssertNotCalled(t, "ListConnections")
	})

	t.Run("Error_UseCaseFailure", func(t *testing.T) {
		handler, mockUseCase := setupTestConnectionHandler(t)

		tenantID := uuid.Must(uuid.NewV7())

		mockUseCase.On("ListConnections", mock.Anything, tenantID, 0, 50).
			Return(nil, apperrors.Wrap(apperrors.ErrUnavailable, "database unavailable")).
			Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/tenants/"+tenantID.String()+"/connections",
			tenantID.String(),
		)

		handler.ListHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		mockUseCase.AssertExpectations(t)
	})
}
