package chat

import (
	"github.com/smallbiznis/kado/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.chat",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.ChatWebhookURL == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(Config{
		WebhookURL: cfg.ChatWebhookURL,
		AuthToken:  cfg.ChatWebhookToken,
	})
}
