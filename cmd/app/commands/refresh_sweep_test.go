package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/connectkit/credvault/internal/vault/sweep"
)

type mockRefreshRunner struct {
	mock.Mock
}

func (m *mockRefreshRunner) Run(ctx context.Context) (*sweep.RefreshResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sweep.RefreshResult), args.Error(1)
}

func TestRunRefreshSweep(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockSweep := &mockRefreshRunner{}
		mockSweep.On("Run", ctx).Return(&sweep.RefreshResult{Refreshed: 3, Failed: 1}, nil)

		var out bytes.Buffer
		err := RunRefreshSweep(ctx, mockSweep, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "3 refreshed, 1 failed, 0 skipped")
		mockSweep.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockSweep := &mockRefreshRunner{}
		mockSweep.On("Run", ctx).Return(&sweep.RefreshResult{Refreshed: 5, Skipped: 2}, nil)

		var out bytes.Buffer
		err := RunRefreshSweep(ctx, mockSweep, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"refreshed": 5`)
		require.Contains(t, out.String(), `"skipped": 2`)
		mockSweep.AssertExpectations(t)
	})

	t.Run("sweep-error", func(t *testing.T) {
		mockSweep := &mockRefreshRunner{}
		mockSweep.On("Run", ctx).Return(nil, context.DeadlineExceeded)

		err := RunRefreshSweep(ctx, mockSweep, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to run refresh sweep")
		mockSweep.AssertExpectations(t)
	})
}
