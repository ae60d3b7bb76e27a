package vote

import (
	"github.com/smallbiznis/kado/internal/vote/repository"
	"github.com/smallbiznis/kado/internal/vote/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
