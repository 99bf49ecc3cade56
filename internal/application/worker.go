package application

import "context"

// Worker is a background loop (the rate warmer). Implementations must run until the
// context is canceled.
type Worker interface {
	Start(ctx context.Context)
}
