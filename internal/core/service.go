package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/gamedata/internal/logging"
)

// DefaultTransferTimeout bounds a single import or export.
const DefaultTransferTimeout = 2 * time.Minute

// ServiceConfig tunes a Service. Zero values select the defaults.
type ServiceConfig struct {
	MaxConcurrentTransfers int
	MaxWait                time.Duration
	TransferTimeout        time.Duration
	MaxImportSize          int64
	HistorySize            int
	// Registerer receives the transfer metrics. Nil keeps them private.
	Registerer prometheus.Registerer
}

// Service owns the in-memory tables and moves them between the store and
// CSV text. Tables are loaded from the store on first use and saved after
// every change.
type Service struct {
	store   Store
	cfg     ServiceConfig
	limiter *TransferLimiter
	metrics *Metrics
	history *History

	mu     sync.Mutex
	tables map[string]*Table
}

// NewService creates a Service backed by store.
func NewService(store Store, cfg ServiceConfig) *Service {
	if cfg.TransferTimeout <= 0 {
		cfg.TransferTimeout = DefaultTransferTimeout
	}
	if cfg.MaxImportSize <= 0 {
		cfg.MaxImportSize = DefaultMaxImportSize
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		limiter: NewTransferLimiter(cfg.MaxConcurrentTransfers, cfg.MaxWait),
		metrics: NewMetrics(cfg.Registerer),
		history: NewHistory(cfg.HistorySize),
		tables:  make(map[string]*Table),
	}
}

// Limiter returns the transfer limiter, for status reporting.
func (s *Service) Limiter() *TransferLimiter { return s.limiter }

// Metrics returns the service collectors.
func (s *Service) Metrics() *Metrics { return s.metrics }

// MaxImportSize is the byte limit applied to one imported file.
func (s *Service) MaxImportSize() int64 { return s.cfg.MaxImportSize }

// WaitForDrain blocks until running transfers and row edits finish or ctx
// ends.
func (s *Service) WaitForDrain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// History returns up to limit transfers, newest first, optionally for one
// table.
func (s *Service) History(table string, limit int) []TransferEntry {
	return s.history.List(table, limit)
}

// Transfer returns one history entry by ID.
func (s *Service) Transfer(id string) (TransferEntry, bool) {
	return s.history.Get(id)
}

// definition looks up a registered table.
func definition(key string) (TableDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return TableDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTable, key)
	}
	return def, nil
}

// tableLocked returns the loaded table for def, loading it from the store
// on first use. s.mu must be held.
func (s *Service) tableLocked(ctx context.Context, def TableDefinition) (*Table, error) {
	if t, ok := s.tables[def.Info.Key]; ok {
		return t, nil
	}
	t, err := s.store.Load(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", def.Info.Key, err)
	}
	t.Sort()
	s.tables[def.Info.Key] = t
	return t, nil
}

// saveLocked persists t and makes it the current state of its table.
// s.mu must be held.
func (s *Service) saveLocked(ctx context.Context, t *Table) error {
	if err := s.store.Save(ctx, t); err != nil {
		return fmt.Errorf("save %s: %w", t.Key(), err)
	}
	s.tables[t.Key()] = t
	return nil
}

// Reload drops every cached table so the next access reads the store again.
func (s *Service) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*Table)
}

// begin takes a transfer slot and applies the transfer timeout. The
// returned function releases both.
func (s *Service) begin(ctx context.Context) (context.Context, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, nil, err
	}
	return s.started(ctx)
}

// tryBegin is begin without the wait: a full limiter fails at once with
// ErrTransferBusy.
func (s *Service) tryBegin(ctx context.Context) (context.Context, func(), error) {
	if !s.limiter.TryAcquire() {
		return nil, nil, ErrTransferBusy
	}
	return s.started(ctx)
}

func (s *Service) started(ctx context.Context) (context.Context, func(), error) {
	s.metrics.TransfersInFlight.Inc()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TransferTimeout)
	return ctx, func() {
		cancel()
		s.metrics.TransfersInFlight.Dec()
		s.limiter.Release()
	}, nil
}

// record stores a finished transfer in the history and metrics and logs it.
func (s *Service) record(ctx context.Context, e TransferEntry, err error) TransferEntry {
	e.Actor = ActorFromContext(ctx)
	e.Duration = time.Since(e.StartedAt)
	if err != nil {
		e.Error = err.Error()
	}
	e = s.history.Add(e)
	s.metrics.observe(e)

	logger := logging.WithFields(ctx,
		"transfer_id", e.ID,
		"table", e.Table,
		"direction", e.Direction,
		"rows", e.Rows,
		"duration", e.Duration,
	)
	if err != nil {
		logger.Error("transfer failed", "error", err)
	} else {
		logger.Info("transfer complete", "skipped", e.Skipped, "failed_cells", e.FailedCells)
	}
	return e
}
