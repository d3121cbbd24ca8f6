package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"platform-event-publisher/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single receipt emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait for in-flight emits before shutting down OTel providers.
// Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitWithTimeout runs Emit bounded by emitTimeout. Failures are logged and never returned: the
// event is already published when a receipt exists.
//
// The emit context is detached from ctx so a cancelled publish context does not drop the receipt.
func EmitWithTimeout(ctx context.Context, emitter Emitter, receipt *domain.Receipt, logger zerolog.Logger) {
	if emitter == nil || receipt == nil {
		return
	}
	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
	defer cancel()
	if err := emitter.Emit(emitCtx, receipt); err != nil {
		logger.Warn().Err(err).Str("event_id", receipt.EventID).Msg("receipt emit failed")
	}
}
