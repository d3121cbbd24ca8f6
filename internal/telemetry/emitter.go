package telemetry

import (
	"context"
	"errors"

	"platform-event-publisher/internal/telemetry/domain"
)

// Emitter delivers publish receipts (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, receipt *domain.Receipt) error
}

// Multi fans a receipt out to every emitter. Nil entries are skipped.
type Multi []Emitter

// Emit calls every emitter and joins their errors.
func (m Multi) Emit(ctx context.Context, receipt *domain.Receipt) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, receipt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
