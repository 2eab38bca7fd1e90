package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/logging"
)

// CSVFileName is the file a table is exported to and imported from.
func CSVFileName(key string) string { return key + ".csv" }

// ExportTable renders a table as CSV text. An empty table yields "".
func (s *Service) ExportTable(ctx context.Context, key string) (string, error) {
	def, err := definition(key)
	if err != nil {
		return "", err
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	text, _, err := s.exportLocked(ctx, def)
	return text, err
}

// ExportAll writes <Key>.csv into dir for every non-empty table.
func (s *Service) ExportAll(ctx context.Context, dir string) ([]ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv folder: %w", err)
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	var results []ExportResult
	for _, def := range All() {
		text, rows, err := s.exportLocked(ctx, def)
		if err != nil {
			return results, err
		}
		if text == "" {
			continue
		}
		path := filepath.Join(dir, CSVFileName(def.Info.Key))
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return results, fmt.Errorf("write %s: %w", path, err)
		}
		results = append(results, ExportResult{Table: def.Info.Key, Rows: rows, Path: path})
	}
	return results, nil
}

// exportLocked flattens every row of def's table. s.mu must be held.
func (s *Service) exportLocked(ctx context.Context, def TableDefinition) (text string, rows int, err error) {
	entry := TransferEntry{Table: def.Info.Key, Direction: DirectionExport, StartedAt: time.Now()}
	defer func() {
		entry.Rows = rows
		s.record(ctx, entry, err)
	}()

	t, err := s.tableLocked(ctx, def)
	if err != nil {
		return "", 0, err
	}

	flat := make([]codec.Row, 0, t.Len())
	for _, r := range t.Rows {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		flat = append(flat, codec.Flatten(r))
	}
	header := codec.TableHeader(def.Type(), flat)
	return codec.WriteTable(header, flat), len(flat), nil
}

// ImportTable applies CSV text to a table and saves it.
//
// ModeUpdate changes rows whose ID already exists and counts the others as
// unmatched. ModeReplace rebuilds the table from every row with a valid ID.
// Rows without a parseable ID are skipped, and cells that fail to parse
// leave their field unchanged; both are counted in the result.
func (s *Service) ImportTable(ctx context.Context, key, content string, mode ImportMode) (ImportResult, error) {
	return s.importTable(ctx, key, content, mode, s.begin)
}

// ImportReader reads and decodes r, then imports it like ImportTable.
func (s *Service) ImportReader(ctx context.Context, key string, r io.Reader, mode ImportMode) (ImportResult, error) {
	content, err := ReadText(r, s.cfg.MaxImportSize)
	if err != nil {
		return ImportResult{Table: key, Mode: mode}, err
	}
	return s.ImportTable(ctx, key, content, mode)
}

// TryImportReader is ImportReader for background callers that would rather
// retry later than queue: if another transfer holds every slot it returns
// ErrTransferBusy without waiting.
func (s *Service) TryImportReader(ctx context.Context, key string, r io.Reader, mode ImportMode) (ImportResult, error) {
	content, err := ReadText(r, s.cfg.MaxImportSize)
	if err != nil {
		return ImportResult{Table: key, Mode: mode}, err
	}
	return s.importTable(ctx, key, content, mode, s.tryBegin)
}

func (s *Service) importTable(
	ctx context.Context,
	key, content string,
	mode ImportMode,
	begin func(context.Context) (context.Context, func(), error),
) (ImportResult, error) {
	def, err := definition(key)
	if err != nil {
		return ImportResult{}, err
	}
	ctx, done, err := begin(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.importLocked(ctx, def, content, mode)
}

// ImportAll imports <Key>.csv from dir for every table that has one.
// A failing table does not stop the others; their errors are joined.
func (s *Service) ImportAll(ctx context.Context, dir string, mode ImportMode) ([]ImportResult, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		results []ImportResult
		errs    []error
	)
	for _, def := range All() {
		path := filepath.Join(dir, CSVFileName(def.Info.Key))
		content, err := s.readCSVFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil {
			var res ImportResult
			res, err = s.importLocked(ctx, def, content, mode)
			if err == nil {
				results = append(results, res)
				continue
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", def.Info.Key, err))
		if ctx.Err() != nil {
			break
		}
	}
	return results, errors.Join(errs...)
}

func (s *Service) readCSVFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ReadText(f, s.cfg.MaxImportSize)
}

// importLocked parses content and applies it to def's table. The table is
// changed only if the whole import succeeds. s.mu must be held.
func (s *Service) importLocked(ctx context.Context, def TableDefinition, content string, mode ImportMode) (res ImportResult, err error) {
	res = ImportResult{Table: def.Info.Key, Mode: mode}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		s.record(ctx, TransferEntry{
			Table:       def.Info.Key,
			Direction:   DirectionImport,
			Mode:        mode,
			Rows:        res.Updated + res.Created,
			Skipped:     res.Skipped,
			FailedCells: res.FailedCells,
			StartedAt:   start,
		}, err)
	}()

	header, rows := codec.ParseTable(content)
	if len(header) == 0 {
		return res, ErrEmptyFile
	}
	if !slices.Contains(header, "ID") {
		return res, fmt.Errorf("%w in %s import", ErrNoIDColumn, def.Info.Key)
	}
	res.Rows = len(rows)

	logger := logging.WithFields(ctx, "table", def.Info.Key, "mode", mode)
	unknown := make(map[string]bool)
	apply := func(rec any, row codec.RawRow) {
		rep := codec.Unflatten(rec, row.Cells)
		res.FailedCells += len(rep.Failed)
		for _, ce := range rep.Failed {
			logger.Warn("cell not imported", "line", row.Line, "column", ce.Column, "value", ce.Value, "error", ce.Err)
		}
		for _, col := range rep.Unknown {
			unknown[col] = true
		}
	}

	var next *Table
	switch mode {
	case ModeUpdate:
		current, err := s.tableLocked(ctx, def)
		if err != nil {
			return res, err
		}
		if next, err = current.Clone(); err != nil {
			return res, err
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			id, ok := codec.RowID(row.Cells)
			if !ok {
				res.Skipped++
				logger.Debug("row skipped: no valid ID", "line", row.Line)
				continue
			}
			rec, _ := next.Find(id)
			if rec == nil {
				res.Unmatched++
				continue
			}
			apply(rec, row)
			rec.Base().ID = id
			res.Updated++
		}

	case ModeReplace:
		next = NewTable(def)
		seen := make(map[int]bool, len(rows))
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			id, ok := codec.RowID(row.Cells)
			if !ok || seen[id] {
				res.Skipped++
				logger.Debug("row skipped", "line", row.Line, "duplicate", ok)
				continue
			}
			seen[id] = true
			rec := def.New()
			rec.Base().ID = id
			apply(rec, row)
			rec.Base().ID = id
			next.Rows = append(next.Rows, rec)
			res.Created++
		}
		next.Sort()

	default:
		return res, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if len(unknown) > 0 {
		cols := make([]string, 0, len(unknown))
		for c := range unknown {
			cols = append(cols, c)
		}
		slices.Sort(cols)
		logger.Warn("columns not imported", "columns", cols)
	}

	if err := s.saveLocked(ctx, next); err != nil {
		return res, err
	}
	return res, nil
}
