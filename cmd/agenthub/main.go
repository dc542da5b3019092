// Command agenthub is the CLI for the AgentHub platform.
//
// Usage:
//
//	agenthub chat --config catalog.yaml --tenant acme --user u1 "where is my order?"
//	agenthub ingest --config catalog.yaml --tenant acme docs/policies.md
//	agenthub query --config catalog.yaml --tenant acme "refund policy"
//	agenthub validate catalog.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	agenthub "github.com/agenthub/agenthub"
	"github.com/agenthub/agenthub/pkg/config"
	"github.com/agenthub/agenthub/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Chat     ChatCmd     `cmd:"" help:"Send a message through the platform."`
	Ingest   IngestCmd   `cmd:"" help:"Ingest documents into a tenant's knowledge base."`
	Query    QueryCmd    `cmd:"" help:"Run a similarity query against a tenant's knowledge base."`
	Forget   ForgetCmd   `cmd:"" help:"Delete all chunks ingested from a source."`
	Stats    StatsCmd    `cmd:"" help:"Show knowledge base statistics for a tenant."`
	Validate ValidateCmd `cmd:"" help:"Validate a catalog file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the catalog format."`

	Config    string `short:"c" help:"Path to catalog file." type:"path" default:"agenthub.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(agenthub.GetVersion().String())
	return nil
}

const (
	// LogLevelEnvVar overrides the log level when the flag is unset.
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFileEnvVar overrides the log file when the flag is unset.
	LogFileEnvVar = "LOG_FILE"
	// LogFormatEnvVar overrides the log format when the flag is unset.
	LogFormatEnvVar = "LOG_FORMAT"
)

// initLogger initializes the logger from CLI flags and environment
// variables. Priority: CLI flags > env vars > defaults. Catalog settings
// are applied later for anything still unset.
func initLogger(cli *CLI) (func(), error) {
	logLevel := cli.LogLevel
	if logLevel == "" {
		logLevel = os.Getenv(LogLevelEnvVar)
	}
	if logLevel == "" {
		logLevel = "info"
	}

	logFile := cli.LogFile
	if logFile == "" {
		logFile = os.Getenv(LogFileEnvVar)
	}

	logFormat := cli.LogFormat
	if logFormat == "" {
		logFormat = os.Getenv(LogFormatEnvVar)
	}
	if logFormat == "" {
		logFormat = "simple"
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var output *os.File
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	} else {
		output = os.Stderr
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}

// loadCatalog loads the catalog and re-applies logger settings from it
// when no flag or env var overrode them.
func loadCatalog(cli *CLI) (*config.Config, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	if cli.LogLevel == "" && os.Getenv(LogLevelEnvVar) == "" && cfg.Platform.LogLevel != "info" {
		if level, err := logger.ParseLevel(cfg.Platform.LogLevel); err == nil {
			logger.Init(level, os.Stderr, cfg.Platform.LogFormat)
		}
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agenthub"),
		kong.Description("AgentHub - multi-tenant conversational agent platform"),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
