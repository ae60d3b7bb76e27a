package contribution

import (
	"github.com/smallbiznis/kado/internal/contribution/repository"
	"github.com/smallbiznis/kado/internal/contribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
