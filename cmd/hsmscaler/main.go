package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xd6wang/my-serverless-kms/internal/autoscaler"
	"github.com/xd6wang/my-serverless-kms/internal/awsapi"
)

const (
	modeLambda = "lambda"
	modeServe  = "serve"
)

func main() {
	defaultMode := modeServe
	if _, ok := os.LookupEnv("AWS_LAMBDA_RUNTIME_API"); ok {
		defaultMode = modeLambda
	}

	mode := flag.String("mode", defaultMode, "Run as a Lambda handler (lambda) or an HTTP server (serve)")
	configFile := flag.String("config", "", "Path to a YAML config file")
	stackName := flag.String("stack", "", "Pulumi stack publishing the 'hsmscale' output")
	workDir := flag.String("workdir", ".", "The directory containing the Pulumi program")
	region := flag.String("region", "", "AWS region (defaults to the SDK's resolution)")
	port := flag.Int("port", 8080, "The port to listen on")
	debug := flag.Bool("debug", envBool("HSM_SCALER_DEBUG"), "Enable debug logging")
	dryRun := flag.Bool("dry-run", false, "Log cluster and rule mutations instead of issuing them")
	flag.Parse()

	// Configure Zerolog. The Lambda runtime ships stdout to CloudWatch Logs,
	// where JSON lines are easier to query.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *mode == modeServe {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal")
		cancel()
	}()

	log.Info().Str("mode", *mode).Str("config", *configFile).Str("stack", *stackName).Msg("Loading configuration...")
	cfg, err := autoscaler.LoadConfig(ctx, autoscaler.LoadOptions{
		File:      *configFile,
		StackName: *stackName,
		WorkDir:   *workDir,
		Lookup:    os.LookupEnv,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dryRun {
		cfg.DryRun = true
	}
	log.Info().
		Str("cluster", cfg.ClusterID).
		Strs("zones", cfg.AvailabilityZones).
		Strs("protected", cfg.ProtectedNodeIDs).
		Int("min", cfg.MinNodes).
		Int("max", cfg.MaxNodes).
		Bool("dryRun", cfg.DryRun).
		Msg("Configuration loaded")

	clients, err := awsapi.New(ctx, *region)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AWS clients")
	}

	metrics := autoscaler.NewMetrics()
	engine, err := autoscaler.NewEngine(cfg, clients.Cluster, clients.Rules, clients.Alarms, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build engine")
	}

	switch *mode {
	case modeLambda:
		runLambda(engine)
	case modeServe:
		server := NewServer(*port, engine, metrics, cfg.AuthToken)
		log.Info().Int("port", *port).Msg("Starting hsmscaler server...")
		if err := server.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	default:
		log.Fatal().Str("mode", *mode).Msg("Unknown mode")
	}
}

func envBool(key string) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring malformed boolean environment variable")
		return false
	}
	return b
}
