package main

import (
	"context"

	"github.com/spf13/cobra"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/pubsub"
	"platform-event-publisher/internal/telemetry/domain"
)

func newGRPCCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grpc",
		Short: "Publish one Avro-encoded event through the Pub/Sub API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.publishGRPC(cmd.Context())
		},
	}
	addFieldFlag(cmd, a)
	cmd.Flags().StringVar(&a.createdBy, "created-by", "", "User id written to CreatedById; overrides SF_CREATED_BY_ID")
	return cmd
}

func (a *app) publishGRPC(ctx context.Context) error {
	if err := a.cfg.ValidateGRPC(); err != nil {
		return err
	}
	fields, err := a.eventFields()
	if err != nil {
		return err
	}
	authenticator, err := auth.New(a.cfg, nil, a.logger)
	if err != nil {
		return err
	}

	opts := pubsub.OptionsFromConfig(a.cfg)
	if a.createdBy != "" {
		opts.CreatedByID = a.createdBy
	}
	res, err := pubsub.Stream(ctx, opts, authenticator, a.cfg.TopicPath(), fields, a.logger)
	if err != nil {
		a.metrics.RecordFailed(ctx, domain.TransportGRPC, eventerr.KindOf(err).String())
		return err
	}
	a.metrics.RecordPublished(ctx, domain.TransportGRPC)
	return a.report(ctx, grpcReceipt(res))
}
