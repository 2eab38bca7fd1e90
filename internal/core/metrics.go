package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for table transfers.
type Metrics struct {
	TransfersTotal    *prometheus.CounterVec
	TransferDuration  *prometheus.HistogramVec
	RowsTransferred   *prometheus.CounterVec
	SkippedRows       *prometheus.CounterVec
	FailedCells       *prometheus.CounterVec
	TransfersInFlight prometheus.Gauge
	RowMutations      *prometheus.CounterVec
}

// NewMetrics registers the transfer collectors with reg. A nil reg uses a
// private registry, which keeps tests and throwaway services apart.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gamedata",
				Name:      "transfers_total",
				Help:      "Table imports and exports by outcome",
			},
			[]string{"table", "direction", "result"},
		),
		TransferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gamedata",
				Name:      "transfer_duration_seconds",
				Help:      "Time spent flattening or unflattening a table",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"table", "direction"},
		),
		RowsTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gamedata",
				Name:      "rows_transferred_total",
				Help:      "Rows written to or read from CSV",
			},
			[]string{"table", "direction"},
		),
		SkippedRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gamedata",
				Name:      "import_skipped_rows_total",
				Help:      "Imported rows dropped for a missing or invalid ID",
			},
			[]string{"table"},
		),
		FailedCells: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gamedata",
				Name:      "import_failed_cells_total",
				Help:      "Imported cells that could not be parsed",
			},
			[]string{"table"},
		),
		TransfersInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "gamedata",
				Name:      "transfers_in_flight",
				Help:      "Transfers currently holding a slot",
			},
		),
		RowMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gamedata",
				Name:      "row_mutations_total",
				Help:      "Rows added, copied, deleted or renumbered",
			},
			[]string{"table", "op"},
		),
	}
}

// observe records a finished transfer.
func (m *Metrics) observe(e TransferEntry) {
	result := "ok"
	if e.Error != "" {
		result = "error"
	}
	dir := string(e.Direction)
	m.TransfersTotal.WithLabelValues(e.Table, dir, result).Inc()
	m.TransferDuration.WithLabelValues(e.Table, dir).Observe(e.Duration.Seconds())
	m.RowsTransferred.WithLabelValues(e.Table, dir).Add(float64(e.Rows))
	if e.Direction == DirectionImport {
		m.SkippedRows.WithLabelValues(e.Table).Add(float64(e.Skipped))
		m.FailedCells.WithLabelValues(e.Table).Add(float64(e.FailedCells))
	}
}
