package domain

import (
	"context"
	"errors"
)

// Dispatcher delivers one intent and records the attempt. A returned error
// means the message did not reach the chat platform and the caller may retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent Intent) error
}

var (
	ErrInvalidIntent = errors.New("invalid_intent")
)
