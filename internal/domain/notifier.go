package domain

import "context"

// Notifier delivers a finished digest to a destination channel.
type Notifier interface {
	Name() string
	Deliver(ctx context.Context, destination string, text string) error
}
