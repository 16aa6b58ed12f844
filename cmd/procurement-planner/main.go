package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/iwvelando/procurement-planner/internal/config"
	"github.com/iwvelando/procurement-planner/internal/pipeline"
	"github.com/iwvelando/procurement-planner/internal/server"
	"github.com/iwvelando/procurement-planner/internal/store"
	"github.com/iwvelando/procurement-planner/pkg/constants"
	"github.com/iwvelando/procurement-planner/pkg/output"
	"github.com/iwvelando/procurement-planner/pkg/validation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func openStore(logger *zap.Logger, path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	return store.Open(logger, path)
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	serveConfig := flag.String("serve", "", "run the HTTP API using the server configuration at this path")
	storePath := flag.String("store", "", "SQLite run store path override")
	flag.Parse()

	if *serveConfig != "" {
		serve(*serveConfig, *logLevel, *storePath)
		return
	}

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(outputFormat)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	runner, err := pipeline.NewRunner(logger, conf)
	if err != nil {
		logger.Fatal("failed to initialize planner",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	path := conf.Store.Path
	if *storePath != "" {
		path = *storePath
	}
	runs, err := openStore(logger, path)
	if err != nil {
		logger.Fatal("failed to open run store",
			zap.String("op", "main"),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	if runs != nil {
		defer func() {
			_ = runs.Close()
		}()
		runner.SetStore(runs)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("failed to compute plan",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if conf.Output.Directory != "" {
		paths, err := output.ExportCSV(conf.Output.Directory, out.Candidates, out.Results)
		if err != nil {
			logger.Error("failed to export CSV files",
				zap.String("op", "main"),
				zap.String("directory", conf.Output.Directory),
				zap.Error(err),
			)
		} else {
			logger.Info("exported CSV files",
				zap.String("op", "main"),
				zap.Strings("paths", paths),
			)
		}
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyFormat(out.Results, out.Summary)
	case constants.OutputFormatCSV:
		output.CsvFormat(out.Results)
	case constants.OutputFormatJSON:
		output.JSONFormat(out.Results, out.Summary)
	}
}

func serve(serverConfigPath, logLevelOverride, storeOverride string) {
	cfg, err := server.LoadConfig(serverConfigPath)
	if err != nil {
		fmt.Printf("{\"op\": \"main.serve\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", serverConfigPath, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg.Logging, logLevelOverride)
	if err != nil {
		fmt.Printf("{\"op\": \"main.serve\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	path := cfg.StorePath
	if storeOverride != "" {
		path = storeOverride
	}
	runs, err := openStore(logger, path)
	if err != nil {
		logger.Fatal("failed to open run store",
			zap.String("op", "main.serve"),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	if runs != nil {
		defer func() {
			_ = runs.Close()
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg, version, runs),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed",
				zap.String("op", "main.serve"),
				zap.Error(err),
			)
		}
	}()

	logger.Info("listening",
		zap.String("op", "main.serve"),
		zap.String("address", cfg.Address),
		zap.String("version", version),
		zap.Bool("store", runs != nil),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
	}
}
