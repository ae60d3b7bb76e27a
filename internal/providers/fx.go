package providers

import (
	"github.com/smallbiznis/kado/internal/providers/chat"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	chat.Module,
)
