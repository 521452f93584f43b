// Command chargestation-converter normalizes the Bundesnetzagentur charging
// station register (semicolon-separated CSV) into a JSON document.
//
// Usage: chargestation-converter input.csv
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"chargestation-converter/config"
	"chargestation-converter/metrics"
	"chargestation-converter/services"
	"chargestation-converter/utils"
)

const usage = "Please provide the input CSV file's path as first argument, e.g., 'chargestation-converter input.csv'"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code. A missing or nonexistent input path
// prints the usage text and is not an error.
func run(args []string, stdout io.Writer) int {
	if len(args) == 0 || !fileExists(args[0]) {
		fmt.Fprintln(stdout, usage)
		return 0
	}
	return convert(args[0], stdout)
}

func convert(inputPath string, stdout io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	baseLogger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = baseLogger.Sync() }()

	logger := baseLogger.With("run_id", uuid.NewString())
	if !cfg.EnvFileLoaded {
		logger.Debug("[config] No .env file found, using system env vars")
	}
	logger.Debug("[config] encoding: %s | preamble: %d | workers: %d | skip invalid: %t",
		cfg.FileEncoding, cfg.PreambleLines, cfg.Workers, cfg.SkipInvalidRows)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	converter := services.NewConverter(cfg, logger, metrics.NewRegistry(), stdout)
	outputPath, err := converter.Run(ctx, inputPath)
	if err != nil {
		logger.Error("[converter] Conversion of %s failed: %v", inputPath, err)
		return 1
	}

	fmt.Fprintf(stdout, "SUCCESS: JSON written to: %s\n", outputPath)
	return 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
