package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"platform-event-publisher/internal/event"
	"platform-event-publisher/internal/pubsub"
	"platform-event-publisher/internal/sobject"
	"platform-event-publisher/internal/telemetry"
	"platform-event-publisher/internal/telemetry/domain"
)

func restReceipt(ev *event.Event, topic string, res *sobject.SaveResult) *domain.Receipt {
	return &domain.Receipt{
		EventID:     ev.ID,
		Transport:   domain.TransportREST,
		Topic:       topic,
		RecordID:    res.ID,
		InstanceURL: res.InstanceURL,
		PublishedAt: time.Now().UTC(),
	}
}

func grpcReceipt(res *pubsub.PublishResult) *domain.Receipt {
	return &domain.Receipt{
		EventID:     res.EventID,
		Transport:   domain.TransportGRPC,
		Topic:       res.Topic,
		SchemaID:    res.SchemaID,
		ReplayID:    hex.EncodeToString(res.ReplayID),
		InstanceURL: res.InstanceURL,
		PublishedAt: time.Now().UTC(),
	}
}

// report emits the receipt best-effort and prints it.
func (a *app) report(ctx context.Context, r *domain.Receipt) error {
	telemetry.EmitWithTimeout(ctx, a.receipts, r, a.logger)
	return a.printJSON(r)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
