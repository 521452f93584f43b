package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the counters and gauges of one conversion run.
type Registry struct {
	reg             *prometheus.Registry
	RowsRead        prometheus.Counter
	StationsWritten prometheus.Counter
	RowsSkipped     prometheus.Counter
	ChargePoints    prometheus.Counter
	DurationSec     prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	rowsRead := prometheus.NewCounter(prometheus.CounterOpts{Name: "chargestation_rows_read_total", Help: "Data rows read from the register."})
	written := prometheus.NewCounter(prometheus.CounterOpts{Name: "chargestation_stations_written_total", Help: "Stations written to the JSON output."})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "chargestation_rows_skipped_total", Help: "Invalid rows skipped."})
	chargePoints := prometheus.NewCounter(prometheus.CounterOpts{Name: "chargestation_charge_points_total", Help: "Charge points across all written stations."})
	duration := prometheus.NewGauge(prometheus.GaugeOpts{Name: "chargestation_conversion_duration_seconds", Help: "Wall time of the last conversion."})
	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{Name: "chargestation_last_success_timestamp_seconds", Help: "Unix time of the last successful conversion."})

	r.MustRegister(rowsRead, written, skipped, chargePoints, duration, lastSuccess)
	return &Registry{
		reg:             r,
		RowsRead:        rowsRead,
		StationsWritten: written,
		RowsSkipped:     skipped,
		ChargePoints:    chargePoints,
		DurationSec:     duration,
		LastSuccess:     lastSuccess,
	}
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
