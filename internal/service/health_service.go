package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/repository"
)

// ClientCounter reports how many realtime sessions are connected.
type ClientCounter interface {
	ClientCount() int
}

type healthService struct {
	modes       *repository.ModeController
	sender      provider.Sender
	redisClient *redis.Client // nil when redis is not configured
	clients     ClientCounter
}

func NewHealthService(
	modes *repository.ModeController,
	sender provider.Sender,
	redisClient *redis.Client,
	clients ClientCounter,
) HealthService {
	return &healthService{
		modes:       modes,
		sender:      sender,
		redisClient: redisClient,
		clients:     clients,
	}
}

func (s *healthService) GetHealth(ctx context.Context) *HealthStatus {
	modeStatus := s.modes.Status()

	status := &HealthStatus{
		Mode:        modeStatus.Mode,
		WantDurable: modeStatus.WantDurable,
		LastError:   modeStatus.LastError,
		RedisStatus: s.checkRedisHealth(ctx),
		Time:        time.Now().UTC(),
	}

	if s.clients != nil {
		status.ConnectedClients = s.clients.ClientCount()
	}

	if reporter, ok := s.sender.(provider.BreakerReporter); ok {
		state, requests, failures := reporter.BreakerState()
		status.BreakerState = state
		if requests > 0 {
			status.BreakerCounts = fmt.Sprintf("requests: %d, failures: %d", requests, failures)
		}
	}

	return status
}

func (s *healthService) checkRedisHealth(ctx context.Context) string {
	if s.redisClient == nil {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return "disconnected"
	}

	return "connected"
}
