package manuscript

import (
	"github.com/openpress/peerflow/internal/manuscript/repository"
	"github.com/openpress/peerflow/internal/manuscript/service"
	"go.uber.org/fx"
)

var Module = fx.Module("manuscript.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
