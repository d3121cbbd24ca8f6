package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/event"
	"platform-event-publisher/internal/eventerr"
	"platform-event-publisher/internal/logging"
	"platform-event-publisher/internal/telemetry"
	otelsetup "platform-event-publisher/internal/telemetry/otel"
	"platform-event-publisher/internal/telemetry/producer"
)

const serviceName = "platform-event-publisher"

var defaultFields = []string{"Product__c=ABC123"}

// app carries flag values and the per-run wiring built in setup.
type app struct {
	envFile   string
	logLevel  string
	fields    []string
	createdBy string

	stdout io.Writer
	stderr io.Writer

	cfg       *config.Config
	logger    zerolog.Logger
	providers *otelsetup.Providers
	metrics   *telemetry.Metrics
	receipts  telemetry.Emitter
	closers   []func() error
}

// run executes the CLI and returns the process exit code. Errors are printed with their kind.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.shutdown(context.WithoutCancel(ctx))
	if err != nil {
		if kind := eventerr.KindOf(err); kind != eventerr.KindUnknown {
			fmt.Fprintf(stderr, "%s error: %v\n", kind, err)
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "publisher",
		Short: "Publish platform events over the REST or Pub/Sub API.",
		Long: `publisher authenticates as the configured integration user and publishes one
platform event per run, either through the sObject REST endpoint (rest) or the
Pub/Sub gRPC API (grpc). Settings come from the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), cmd.Name())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to an env file; a missing file is ignored")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Logging level (trace, debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(newRESTCmd(a), newGRPCCmd(a), newTopicCmd(a))
	return root
}

// addFieldFlag registers the repeatable --field flag on a publishing command.
func addFieldFlag(cmd *cobra.Command, a *app) {
	cmd.Flags().StringArrayVarP(&a.fields, "field", "f", defaultFields,
		`Event field as name=value (string) or name:=json; repeatable`)
}

// setup loads config and builds logging, OTel providers, metrics, and receipt emitters.
func (a *app) setup(ctx context.Context, transport string) error {
	cfg, err := config.LoadFrom(a.envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, a.stderr)

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: serviceName,
		Transport:   transport,
		Topic:       cfg.TopicPath(),
		LoginHost:   cfg.LoginBaseURL(),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	a.providers = providers

	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.metrics = metrics

	emitters := telemetry.Multi{otelsetup.NewReceiptEmitter(providers.LoggerProvider)}
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.ReceiptKafkaTopic, a.logger); p != nil {
		emitters = append(emitters, p)
		a.closers = append(a.closers, p.Close)
		a.logger.Debug().Strs("brokers", cfg.KafkaBrokersList()).Str("topic", cfg.ReceiptKafkaTopic).Msg("kafka receipts enabled")
	}
	a.receipts = emitters
	return nil
}

// shutdown closes producers, then flushes the OTel providers.
func (a *app) shutdown(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn().Err(err).Msg("close")
		}
	}
	if a.providers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, telemetry.ShutdownDrainDuration)
	defer cancel()
	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("telemetry shutdown")
	}
}

func (a *app) eventFields() (map[string]any, error) {
	fields, err := event.ParseFields(a.fields)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.New("at least one --field is required")
	}
	return fields, nil
}
