package main

import (
	"context"

	"github.com/spf13/cobra"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/event"
	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/sobject"
	"platform-event-publisher/internal/telemetry/domain"
)

func newRESTCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rest",
		Short: "Publish one event through the sObject REST endpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.publishREST(cmd.Context())
		},
	}
	addFieldFlag(cmd, a)
	return cmd
}

func (a *app) publishREST(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	fields, err := a.eventFields()
	if err != nil {
		return err
	}
	httpClient := auth.NewHTTPClient(a.cfg.HTTPTimeoutDuration())
	authenticator, err := auth.New(a.cfg, httpClient, a.logger)
	if err != nil {
		return err
	}

	ev := event.New(fields)
	publisher := sobject.NewPublisher(authenticator, a.cfg.APIVersion, httpClient, a.logger)
	res, err := publisher.PublishEvent(ctx, a.cfg.ObjectName(), ev.Payload())
	if err != nil {
		a.metrics.RecordFailed(ctx, domain.TransportREST, eventerr.KindOf(err).String())
		return err
	}
	a.metrics.RecordPublished(ctx, domain.TransportREST)
	return a.report(ctx, restReceipt(ev, a.cfg.ObjectName(), res))
}
