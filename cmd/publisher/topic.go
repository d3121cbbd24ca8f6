package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"platform-event-publisher/internal/auth"
	"platform-event-publisher/internal/pubsub"
)

type topicDescription struct {
	Topic      string          `json:"topic"`
	SchemaID   string          `json:"schema_id"`
	CanPublish bool            `json:"can_publish"`
	Schema     json.RawMessage `json:"schema"`
}

func newTopicCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "topic [name]",
		Short: "Resolve a topic and print its schema id and Avro schema.",
		Long: `topic looks up the Pub/Sub API topic (SF_TOPIC_NAME unless a name is given)
and prints its schema id, publish permission, and Avro schema as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.TopicName = args[0]
			}
			return a.describeTopic(cmd.Context())
		},
	}
}

func (a *app) describeTopic(ctx context.Context) error {
	if err := a.cfg.ValidateGRPC(); err != nil {
		return err
	}
	authenticator, err := auth.New(a.cfg, nil, a.logger)
	if err != nil {
		return err
	}
	opts := pubsub.OptionsFromConfig(a.cfg)
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	client, err := pubsub.Connect(ctx, opts, authenticator, a.logger)
	if err != nil {
		return err
	}
	defer client.Close()

	tp, err := client.GetTopic(ctx, a.cfg.TopicPath())
	if err != nil {
		return err
	}
	return a.printJSON(topicDescription{
		Topic:      tp.Name,
		SchemaID:   tp.SchemaID,
		CanPublish: tp.CanPublish,
		Schema:     json.RawMessage(tp.SchemaJSON),
	})
}
