package chat

import "context"

// Provider delivers messages to the team chat platform. A channel target of
// "" means the team's shared channel; DMs address a member's external id.
type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
	PostDirectMessage(ctx context.Context, memberExternalID int64, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}

func (p *NoOpProvider) PostDirectMessage(ctx context.Context, memberExternalID int64, message string) error {
	return nil
}
