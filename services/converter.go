package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"chargestation-converter/config"
	"chargestation-converter/metrics"
	"chargestation-converter/models"
	"chargestation-converter/storage"
	"chargestation-converter/utils"
)

// Converter runs the whole pipeline: read the register table, normalize
// every row and write the JSON document once.
type Converter struct {
	cfg     *config.Config
	logger  *utils.Logger
	metrics *metrics.Registry
	summary *SummaryService
	stdout  io.Writer
}

// NewConverter wires a Converter. stdout receives the optional summary.
func NewConverter(cfg *config.Config, logger *utils.Logger, m *metrics.Registry, stdout io.Writer) *Converter {
	return &Converter{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		summary: NewSummaryService(logger),
		stdout:  stdout,
	}
}

// Run converts inputPath and returns the absolute path of the written file.
func (c *Converter) Run(ctx context.Context, inputPath string) (string, error) {
	start := time.Now()

	enc, err := storage.LookupEncoding(c.cfg.FileEncoding)
	if err != nil {
		return "", err
	}

	rows, err := c.read(inputPath, storage.ReaderOptions{
		Encoding:      enc,
		PreambleLines: c.cfg.PreambleLines,
		Delimiter:     c.cfg.Delimiter(),
	})
	if err != nil {
		return "", err
	}
	c.metrics.RowsRead.Add(float64(len(rows)))

	normalizer := NewNormalizer(c.logger, NormalizerOptions{
		Workers:         c.cfg.Workers,
		SkipInvalidRows: c.cfg.SkipInvalidRows,
	})
	stations, skipped, err := normalizer.NormalizeAll(ctx, rows)
	if err != nil {
		return "", err
	}
	c.metrics.RowsSkipped.Add(float64(len(skipped)))

	writer := storage.NewJSONWriter(c.cfg.OutputPath, storage.WriterOptions{
		Encoding:       enc,
		Indent:         c.cfg.JSONIndent,
		EscapeNonASCII: c.cfg.JSONEscapeNonASCII,
	})
	defer writer.Close()

	if err := writer.Write(stations); err != nil {
		return "", err
	}
	c.metrics.StationsWritten.Add(float64(len(stations)))

	absPath, err := resolvePath(writer.Path())
	if err != nil {
		return "", fmt.Errorf("converter: resolve output path: %w", err)
	}
	c.logger.Info("[writer] Wrote %d stations to %s", len(stations), absPath)

	report := c.summary.Generate(stations)
	c.metrics.ChargePoints.Add(float64(report.TotalChargePoints))
	if c.cfg.PrintSummary {
		c.summary.Print(c.stdout, report)
	}

	c.metrics.DurationSec.Set(time.Since(start).Seconds())
	c.metrics.LastSuccess.SetToCurrentTime()
	if c.cfg.MetricsTextfile != "" {
		if err := c.metrics.WriteTextfile(c.cfg.MetricsTextfile); err != nil {
			c.logger.Warn("[metrics] %v", err)
		} else {
			c.logger.Debug("[metrics] Metrics written to %s", c.cfg.MetricsTextfile)
		}
	}

	return absPath, nil
}

// read opens the table, checks the header and drains all rows. The file
// is closed on every path.
func (c *Converter) read(path string, opts storage.ReaderOptions) ([]models.RawRecord, error) {
	reader, err := storage.OpenStationCSV(path, opts)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	if err := ValidateHeader(reader.Header()); err != nil {
		return nil, fmt.Errorf("converter: %s: %w", path, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	c.logger.Info("[reader] Read %d rows from %s", len(rows), path)
	return rows, nil
}

// resolvePath returns the absolute path of an existing file with symlinks
// resolved.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
