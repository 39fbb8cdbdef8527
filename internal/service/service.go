package service

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/realtime"
	"github.com/inboxlab/inboxd/internal/repository"
)

type Service struct {
	Message MessageService
	Health  HealthService
}

func NewService(
	modes *repository.ModeController,
	sender provider.Sender,
	publisher realtime.Publisher,
	redisClient *redis.Client,
	clients ClientCounter,
	logger *zap.Logger,
) *Service {
	return &Service{
		Message: NewMessageService(modes, sender, publisher, redisClient, logger),
		Health:  NewHealthService(modes, sender, redisClient, clients),
	}
}
