package core

import (
	"context"
	"fmt"
	"maps"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/logging"
	"github.com/JonMunkholm/gamedata/internal/model"
)

// NewRowName is the name given to rows created by AddRow.
const NewRowName = "New Item"

// CopySuffix is appended to the name of a copied row.
const CopySuffix = " (Copy)"

// hold takes a transfer slot and the table lock for a row mutation, so
// WaitForDrain also waits for edits in flight.
func (s *Service) hold(ctx context.Context) (func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.limiter.Release()
	}, nil
}

// mutate runs fn on a copy of key's table and saves the copy if fn
// succeeds. The current table is left untouched otherwise.
func (s *Service) mutate(ctx context.Context, key, op string, fn func(t *Table) error) error {
	def, err := definition(key)
	if err != nil {
		return err
	}
	release, err := s.hold(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.mutateLocked(ctx, def, op, fn)
}

func (s *Service) mutateLocked(ctx context.Context, def TableDefinition, op string, fn func(t *Table) error) error {
	current, err := s.tableLocked(ctx, def)
	if err != nil {
		return err
	}
	next, err := current.Clone()
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	if err := s.saveLocked(ctx, next); err != nil {
		return err
	}
	s.metrics.RowMutations.WithLabelValues(def.Info.Key, op).Inc()
	return nil
}

// AddRow appends an empty active row with the lowest free ID.
func (s *Service) AddRow(ctx context.Context, key string) (model.Record, error) {
	var added model.Record
	err := s.mutate(ctx, key, "add", func(t *Table) error {
		added = t.Def.New()
		base := added.Base()
		base.ID = t.NextFreeID(1)
		base.Name = NewRowName
		base.State = model.Active
		t.Insert(added)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "table", key, "id", added.Base().ID).Info("row added")
	return added, nil
}

// CopyRow duplicates row id under the first free ID after it.
func (s *Service) CopyRow(ctx context.Context, key string, id int) (model.Record, error) {
	var copied model.Record
	err := s.mutate(ctx, key, "copy", func(t *Table) error {
		src, _ := t.Find(id)
		if src == nil {
			return fmt.Errorf("%w: %s %d", ErrRowNotFound, key, id)
		}
		cp, err := CloneRecord(t.Def, src)
		if err != nil {
			return err
		}
		base := cp.Base()
		base.ID = t.NextFreeID(id + 1)
		base.Name += CopySuffix
		t.Insert(cp)
		copied = cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "table", key, "source", id, "id", copied.Base().ID).Info("row copied")
	return copied, nil
}

// DeleteRow removes row id. References to it in other tables are kept.
func (s *Service) DeleteRow(ctx context.Context, key string, id int) error {
	err := s.mutate(ctx, key, "delete", func(t *Table) error {
		if !t.Remove(id) {
			return fmt.Errorf("%w: %s %d", ErrRowNotFound, key, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.WithFields(ctx, "table", key, "id", id).Info("row deleted")
	return nil
}

// UpdateRow applies column-path edits to row id, the way an import applies
// a CSV row. The ID column is ignored; use ChangeRowID to renumber.
func (s *Service) UpdateRow(ctx context.Context, key string, id int, cells map[string]string) (codec.Report, error) {
	var rep codec.Report
	err := s.mutate(ctx, key, "update", func(t *Table) error {
		rec, _ := t.Find(id)
		if rec == nil {
			return fmt.Errorf("%w: %s %d", ErrRowNotFound, key, id)
		}
		edits := maps.Clone(cells)
		delete(edits, "ID")
		rep = codec.Unflatten(rec, edits)
		return nil
	})
	return rep, err
}

// ChangeRowID renumbers row oldID to newID, keeps the table ordered by ID
// and points every foreign key to the row's type at the new ID. It returns
// the number of references rewritten.
func (s *Service) ChangeRowID(ctx context.Context, key string, oldID, newID int) (int, error) {
	if newID <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidID, newID)
	}
	if oldID == newID {
		return 0, nil
	}
	def, err := definition(key)
	if err != nil {
		return 0, err
	}

	release, err := s.hold(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	err = s.mutateLocked(ctx, def, "renumber", func(t *Table) error {
		rec, _ := t.Find(oldID)
		if rec == nil {
			return fmt.Errorf("%w: %s %d", ErrRowNotFound, key, oldID)
		}
		if other, _ := t.Find(newID); other != nil {
			return fmt.Errorf("%w: %s %d", ErrDuplicateID, key, newID)
		}
		t.Remove(oldID)
		rec.Base().ID = newID
		t.Insert(rec)
		return nil
	})
	if err != nil {
		return 0, err
	}

	rewritten, err := s.rewriteReferencesLocked(ctx, def, oldID, newID)
	logging.WithFields(ctx, "table", key, "old_id", oldID, "new_id", newID).
		Info("row renumbered", "references", rewritten)
	return rewritten, err
}

// rewriteReferencesLocked updates foreign keys to target rows in every
// table and saves the tables that changed. s.mu must be held.
func (s *Service) rewriteReferencesLocked(ctx context.Context, target TableDefinition, oldID, newID int) (int, error) {
	total := 0
	for _, def := range All() {
		current, err := s.tableLocked(ctx, def)
		if err != nil {
			return total, err
		}
		next, err := current.Clone()
		if err != nil {
			return total, err
		}
		n := 0
		for _, r := range next.Rows {
			n += codec.RewriteReferences(r, target.Type(), oldID, newID)
		}
		if n == 0 {
			continue
		}
		if err := s.saveLocked(ctx, next); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
