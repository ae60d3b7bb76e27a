package notification

import (
	"github.com/smallbiznis/kado/internal/notification/repository"
	"github.com/smallbiznis/kado/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.dispatcher",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewDispatcher),
)
