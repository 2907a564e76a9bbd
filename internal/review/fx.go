package review

import (
	"github.com/openpress/peerflow/internal/review/repository"
	"github.com/openpress/peerflow/internal/review/service"
	"go.uber.org/fx"
)

var Module = fx.Module("review.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
