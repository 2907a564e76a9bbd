package notification

import (
	"github.com/openpress/peerflow/internal/notification/repository"
	"github.com/openpress/peerflow/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(service.NewDispatcher),
	fx.Provide(service.NewService),
)
