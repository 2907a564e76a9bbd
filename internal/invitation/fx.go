package invitation

import (
	"github.com/openpress/peerflow/internal/invitation/repository"
	"github.com/openpress/peerflow/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
