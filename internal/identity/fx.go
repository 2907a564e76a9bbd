package identity

import (
	"github.com/openpress/peerflow/internal/identity/repository"
	"github.com/openpress/peerflow/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
