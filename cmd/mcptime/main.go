package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // Embedded zoneinfo for hosts without /usr/share/zoneinfo

	"github.com/jessevdk/go-flags"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/i2y/mcptime/configs"
	"github.com/i2y/mcptime/internal/adapter/inbound/dispatch"
	"github.com/i2y/mcptime/internal/adapter/inbound/mcphttp"
	"github.com/i2y/mcptime/internal/adapter/inbound/mcpstdio"
	"github.com/i2y/mcptime/internal/adapter/outbound/invoker"
	"github.com/i2y/mcptime/internal/adapter/outbound/memrepo"
	"github.com/i2y/mcptime/internal/adapter/outbound/tzdb"
	"github.com/i2y/mcptime/internal/usecase"
)

const serverName = "mcp-time"

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

const instructions = "Use get_current_time to read the current time in an IANA timezone " +
	"and convert_time to convert an HH:MM time between two timezones."

func main() {
	// === Command Line Flags ===
	opts, overrides, err := parseOptions(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.Version {
		fmt.Printf("%s %s\n", serverName, version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	// Logs go to stderr so stdout stays free for the stdio transport.
	logLevel := cfg.ParsedLogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", logLevel.String()), slog.String("transport", cfg.Transport))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error.", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *configs.Config, logger *slog.Logger) error {
	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	resolver, err := tzdb.NewResolver(cfg.LocalTimezone, logger)
	if err != nil {
		return err
	}

	repo := memrepo.NewInMemoryToolRepository(logger)
	if _, err := usecase.NewRegisterToolsUseCase(repo, resolver, logger).Execute(ctx); err != nil {
		return err
	}

	timeService := usecase.NewTimeService(resolver, usecase.SystemClock, logger)
	toolInvoker := invoker.NewRouter(timeService, logger)
	serveUC := usecase.NewServeToolsUseCase(repo, logger)
	invokeUC := usecase.NewInvokeToolUseCase(repo, toolInvoker, logger)

	info := dispatch.ServerInfo{
		Name:         serverName,
		Version:      version,
		Instructions: instructions,
	}

	// === Transport Mode Selection ===
	switch cfg.Transport {
	case configs.TransportStdio:
		srv, err := mcpstdio.NewServer(ctx, serveUC, invokeUC, info, logger)
		if err != nil {
			return err
		}
		if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		logger.Info("STDIO server stopped.")
		return nil

	case configs.TransportSSE:
		return serveSSE(ctx, cfg, dispatch.NewDispatcher(serveUC, invokeUC, info, logger), logger)

	default:
		return fmt.Errorf("invalid transport mode %q", cfg.Transport)
	}
}

func serveSSE(ctx context.Context, cfg *configs.Config, d *dispatch.Dispatcher, logger *slog.Logger) error {
	handlers := mcphttp.NewHandlers(d, mcphttp.Options{
		Name:              serverName,
		Version:           version,
		AuthToken:         cfg.AuthToken,
		KeepAliveInterval: cfg.KeepAliveInterval,
		QueueSize:         cfg.SessionQueueSize,
	}, logger)
	if cfg.AuthToken != "" {
		logger.Info("Bearer token authentication enabled.")
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.Router(),
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		ReadTimeout:       cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("MCP SSE server starting.",
			slog.String("address", cfg.Addr()),
			slog.String("stream", "/mcp"),
			slog.String("messages", "/mcp/messages"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("MCP SSE server failed: %w", err)
		}
	}

	// === Server Shutdown ===
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	handlers.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server shut down gracefully.")
	return nil
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP trace exporter.
// It returns a shutdown function to be called on application exit.
func initOtelProvider(ctx context.Context, cfg *configs.Config) (func(context.Context) error, error) {
	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	// Setup OTLP gRPC connection options.
	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	// Define application resource attributes.
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serverName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	slog.Info("OpenTelemetry TracerProvider configured.")

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
