package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/provider/mocks"
	"github.com/inboxlab/inboxd/internal/repository"
	"github.com/inboxlab/inboxd/internal/service"
)

type staticClientCounter int

func (c staticClientCounter) ClientCount() int { return int(c) }

func TestHealthService_VolatileWithLastError(t *testing.T) {
	fallback := repository.NewMemoryMessageRepository()
	modes := repository.NewModeController(fallback, true, zap.NewNop())
	modes.AttemptDurable(func(ctx context.Context) (repository.MessageRepository, error) {
		return nil, errors.New("dial tcp: connection refused")
	}, time.Second)

	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	svc := service.NewHealthService(modes, sender, nil, staticClientCounter(3))
	status := svc.GetHealth(context.Background())

	// Degraded, not down: the endpoint keeps reporting while the fallback
	// store serves traffic.
	assert.Equal(t, repository.ModeVolatile, status.Mode)
	assert.True(t, status.WantDurable)
	assert.Contains(t, status.LastError, "connection refused")
	assert.Equal(t, "disabled", status.RedisStatus)
	assert.Equal(t, 3, status.ConnectedClients)
	assert.False(t, status.Time.IsZero())
}

func TestHealthService_DurableClearsError(t *testing.T) {
	fallback := repository.NewMemoryMessageRepository()
	durable := repository.NewMemoryMessageRepository()
	modes := repository.NewModeController(fallback, true, zap.NewNop())
	modes.AttemptDurable(func(ctx context.Context) (repository.MessageRepository, error) {
		return durable, nil
	}, time.Second)

	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSender(ctrl)

	svc := service.NewHealthService(modes, sender, nil, staticClientCounter(0))
	status := svc.GetHealth(context.Background())

	assert.Equal(t, repository.ModeDurable, status.Mode)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 0, status.ConnectedClients)
}

func TestHealthService_ReportsBreakerState(t *testing.T) {
	fallback := repository.NewMemoryMessageRepository()
	modes := repository.NewModeController(fallback, false, zap.NewNop())

	reporter := &fakeBreakerSender{
		state:    provider.BreakerOpen,
		requests: 12,
		failures: 7,
	}

	svc := service.NewHealthService(modes, reporter, nil, nil)
	status := svc.GetHealth(context.Background())

	assert.Equal(t, provider.BreakerOpen, status.BreakerState)
	require.NotEmpty(t, status.BreakerCounts)
	assert.Contains(t, status.BreakerCounts, "requests: 12")
	assert.Contains(t, status.BreakerCounts, "failures: 7")
}

// fakeBreakerSender implements both Sender and BreakerReporter.
type fakeBreakerSender struct {
	state    provider.BreakerState
	requests uint32
	failures uint32
}

func (f *fakeBreakerSender) SendText(ctx context.Context, to, text, replyToMessageID string) (*provider.SendResult, error) {
	return &provider.SendResult{}, nil
}

func (f *fakeBreakerSender) BreakerState() (provider.BreakerState, uint32, uint32) {
	return f.state, f.requests, f.failures
}
