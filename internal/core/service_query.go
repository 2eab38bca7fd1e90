package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/model"
)

// TablePreview is a table rendered the way it would be exported.
type TablePreview struct {
	Table  string     `json:"table"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	Total  int        `json:"total"`
}

// Tables lists the registered tables with their row counts.
func (s *Service) Tables(ctx context.Context) ([]TableSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := All()
	result := make([]TableSummary, 0, len(defs))
	for _, def := range defs {
		t, err := s.tableLocked(ctx, def)
		if err != nil {
			return nil, err
		}
		result = append(result, TableSummary{TableInfo: def.Info, Rows: t.Len()})
	}
	return result, nil
}

// Header returns the static column set of key's record type.
func (s *Service) Header(key string) ([]string, error) {
	def, err := definition(key)
	if err != nil {
		return nil, err
	}
	return def.Header(), nil
}

// Schema describes key's record type.
func (s *Service) Schema(key string) (codec.SchemaView, error) {
	def, err := definition(key)
	if err != nil {
		return codec.SchemaView{}, err
	}
	return codec.Describe(def.Type()), nil
}

// Row returns a copy of row id.
func (s *Service) Row(ctx context.Context, key string, id int) (model.Record, error) {
	def, err := definition(key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(ctx, def)
	if err != nil {
		return nil, err
	}
	rec, _ := t.Find(id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s %d", ErrRowNotFound, key, id)
	}
	return CloneRecord(def, rec)
}

// Fields lists the fields of row id in editor order.
func (s *Service) Fields(ctx context.Context, key string, id int) ([]codec.FieldView, error) {
	rec, err := s.Row(ctx, key, id)
	if err != nil {
		return nil, err
	}
	return codec.Fields(rec), nil
}

// Preview flattens up to limit rows of key's table. The header covers only
// those rows. A limit of zero or less previews every row.
func (s *Service) Preview(ctx context.Context, key string, limit int) (TablePreview, error) {
	def, err := definition(key)
	if err != nil {
		return TablePreview{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.tableLocked(ctx, def)
	if err != nil {
		return TablePreview{}, err
	}

	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	flat := make([]codec.Row, len(rows))
	for i, r := range rows {
		flat[i] = codec.Flatten(r)
	}
	header := codec.TableHeader(def.Type(), flat)

	p := TablePreview{Table: key, Header: header, Rows: make([][]string, len(flat)), Total: t.Len()}
	for i, r := range flat {
		p.Rows[i] = r.Values(header)
	}
	return p, nil
}
