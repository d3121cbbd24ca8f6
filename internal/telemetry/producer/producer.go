// Package producer defines the interface for shipping publish receipts to a broker (e.g. Kafka).
package producer

import (
	"context"

	"platform-event-publisher/internal/telemetry/domain"
)

// Producer ships receipts. Callers use it best-effort: log and ignore errors.
// Every Producer is also a telemetry.Emitter.
type Producer interface {
	// Emit sends a single receipt. Implementations may block briefly.
	Emit(ctx context.Context, receipt *domain.Receipt) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
