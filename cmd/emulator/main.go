// Command emulator runs a local stand-in for the platform: the OAuth2 token and sObject REST
// endpoints over HTTP, and the Pub/Sub API over gRPC. It reads the same environment as the
// publisher, so one .env drives both.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/emulator"
	"platform-event-publisher/internal/logging"
	otelsetup "platform-event-publisher/internal/telemetry/otel"
)

func main() {
	logger := logging.New("info", "console", os.Stderr)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	providers, err := otelsetup.NewProviders(context.Background(), otelsetup.Settings{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: "platform-event-emulator",
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry")
	}
	providers.SetGlobal()

	identity, err := identityFromConfig(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("identity")
	}
	emu, err := emulator.New(emulator.Options{Identity: identity, SchemaDir: cfg.EmulatorSchemaDir}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("emulator")
	}

	lis, err := net.Listen("tcp", cfg.EmulatorGRPCAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen")
	}
	defer lis.Close()

	s := emu.GRPCServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	emu.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	httpSrv := &http.Server{
		Addr:              cfg.EmulatorHTTPAddr,
		Handler:           otelhttp.NewHandler(emu.HTTP, "emulator"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.EmulatorGRPCAddr).Msg("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			logger.Fatal().Err(err).Msg("serve grpc")
		}
	}()
	go func() {
		logger.Info().Str("addr", cfg.EmulatorHTTPAddr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("serve http")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down emulator...")
	emu.Health.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	s.GracefulStop()
	if err := providers.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("telemetry shutdown")
	}
	logger.Info().Msg("emulator stopped")
}
