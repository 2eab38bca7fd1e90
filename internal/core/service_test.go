package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/model"
)

func TestMain(m *testing.M) {
	Clear()
	Register(Define[model.Item]("Inventory"))
	Register(Define[model.Monster]("Creatures"))
	Register(Define[model.Quest]("Quests"))
	os.Exit(m.Run())
}

// memStore keeps saved tables as JSON so the service never shares rows
// with it.
type memStore struct {
	mu      sync.Mutex
	saved   map[string]*Table
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*Table)}
}

func (m *memStore) Load(_ context.Context, def TableDefinition) (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.saved[def.Info.Key]
	if !ok {
		return NewTable(def), nil
	}
	return t.Clone()
}

func (m *memStore) Save(_ context.Context, t *Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp, err := t.Clone()
	if err != nil {
		return err
	}
	m.saved[t.Key()] = cp
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, ServiceConfig{MaxWait: 50 * time.Millisecond}), store
}

// seed loads rows into a table through a replace import.
func seed(t *testing.T, s *Service, key, content string) {
	t.Helper()
	_, err := s.ImportTable(context.Background(), key, content, ModeReplace)
	require.NoError(t, err)
}

func ids(t *testing.T, s *Service, key string) []int {
	t.Helper()
	p, err := s.Preview(context.Background(), key, 0)
	require.NoError(t, err)
	out := make([]int, 0, len(p.Rows))
	for _, r := range p.Rows {
		id, ok := codec.RowID(map[string]string{"ID": r[0]})
		require.True(t, ok)
		out = append(out, id)
	}
	return out
}

func TestService_ExportEmptyTable(t *testing.T) {
	s, _ := newTestService(t)

	text, err := s.ExportTable(context.Background(), "Items")
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestService_ExportQuest(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	seed(t, s, "Monsters", "ID,Name,HP\r\n2,Wolf,30\r\n")
	seed(t, s, "Quests", "ID,Name,State,Title,GiverNPC\r\n2,Side Quest A,Active,Hunt,2\r\n")

	text, err := s.ExportTable(ctx, "Quests")
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,State,Title,GiverNPC\r\n2,Side Quest A,Active,Hunt,2\r\n", text)

	rec, err := s.Row(ctx, "Quests", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.(*model.Quest).GiverNPC.ID)
}

func TestService_ImportUpdate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name,HP,Attack\r\n1,Wolf,30,4\r\n2,Bat,5,1\r\n")

	res, err := s.ImportTable(ctx, "Monsters",
		"ID,HP,Attack\r\n1,abc,6\r\n7,10,10\r\nxyz,1,1\r\n2,8,\r\n", ModeUpdate)
	require.NoError(t, err)

	assert.Equal(t, ImportResult{
		Table:       "Monsters",
		Mode:        ModeUpdate,
		Rows:        4,
		Updated:     2,
		Unmatched:   1,
		Skipped:     1,
		FailedCells: 1,
		Duration:    res.Duration,
	}, res)

	wolf, err := s.Row(ctx, "Monsters", 1)
	require.NoError(t, err)
	assert.Equal(t, 30, wolf.(*model.Monster).HP, "unparsable cell keeps the old value")
	assert.Equal(t, 6, wolf.(*model.Monster).Attack)
	assert.Equal(t, "Wolf", wolf.Base().Name)

	bat, err := s.Row(ctx, "Monsters", 2)
	require.NoError(t, err)
	assert.Equal(t, 8, bat.(*model.Monster).HP)
	assert.Equal(t, 1, bat.(*model.Monster).Attack, "empty cell leaves the field untouched")

	assert.Equal(t, []int{1, 2}, ids(t, s, "Monsters"))
}

func TestService_ImportReplace(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Items", "ID,Name\r\n9,Old\r\n")

	res, err := s.ImportTable(ctx, "Items",
		"ID,Name,Value\r\n2,Bow,15\r\nabc,Bad,1\r\n1,Sword,10\r\n2,Dup,9\r\n", ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Skipped)

	assert.Equal(t, []int{1, 2}, ids(t, s, "Items"))

	bow, err := s.Row(ctx, "Items", 2)
	require.NoError(t, err)
	assert.Equal(t, "Bow", bow.Base().Name)
	require.NotNil(t, bow.(*model.Item).Value)
	assert.Equal(t, 15, *bow.(*model.Item).Value)
	assert.Equal(t, model.Active, bow.Base().State)

	assert.Len(t, store.saved["Items"].Rows, 2)
}

func TestService_ImportRejected(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		content string
		mode    ImportMode
		wantErr error
	}{
		{"unknown table", "Dragons", "ID\r\n1\r\n", ModeUpdate, ErrUnknownTable},
		{"empty file", "Items", "", ModeReplace, ErrEmptyFile},
		{"blank lines only", "Items", "\r\n\r\n", ModeReplace, ErrEmptyFile},
		{"no id column", "Items", "Name\r\nSword\r\n", ModeReplace, ErrNoIDColumn},
		{"bad mode", "Items", "ID\r\n1\r\n", ImportMode("merge"), ErrInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t)
			seed(t, s, "Items", "ID,Name\r\n1,Sword\r\n")

			_, err := s.ImportTable(context.Background(), tt.key, tt.content, tt.mode)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []int{1}, ids(t, s, "Items"))
		})
	}
}

func TestService_ImportNonNumericIDLeavesCount(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s, "Items", "ID,Name\r\n1,Sword\r\n")

	res, err := s.ImportTable(context.Background(), "Items", "ID,Name\r\nabc,Axe\r\n", ModeUpdate)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []int{1}, ids(t, s, "Items"))
}

func TestService_SaveFailureKeepsTable(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Items", "ID,Name\r\n1,Sword\r\n")

	store.saveErr = errors.New("disk full")

	_, err := s.ImportTable(ctx, "Items", "ID,Name\r\n1,Axe\r\n", ModeUpdate)
	require.Error(t, err)
	_, err = s.AddRow(ctx, "Items")
	require.Error(t, err)

	rec, err := s.Row(ctx, "Items", 1)
	require.NoError(t, err)
	assert.Equal(t, "Sword", rec.Base().Name)
	assert.Equal(t, []int{1}, ids(t, s, "Items"))
}

func TestService_AddRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.AddRow(ctx, "Items")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Base().ID)
	assert.Equal(t, NewRowName, first.Base().Name)
	assert.Equal(t, model.Active, first.Base().State)

	seed(t, s, "Items", "ID,Name\r\n1,A\r\n2,B\r\n4,D\r\n")
	gap, err := s.AddRow(ctx, "Items")
	require.NoError(t, err)
	assert.Equal(t, 3, gap.Base().ID)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(t, s, "Items"))
}

func TestService_CopyRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters",
		"ID,Name,HP,BaseStats.Strength,Auras.0.Name\r\n1,Wolf,30,7,Howl\r\n2,Bat,5,,\r\n5,Ogre,90,,\r\n")

	cp, err := s.CopyRow(ctx, "Monsters", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, cp.Base().ID)
	assert.Equal(t, "Wolf (Copy)", cp.Base().Name)

	m := cp.(*model.Monster)
	require.NotNil(t, m.BaseStats)
	assert.Equal(t, 7, m.BaseStats.Strength)
	require.NotNil(t, m.Auras[0])
	assert.Equal(t, "Howl", m.Auras[0].Name)

	m.BaseStats.Strength = 99
	orig, err := s.Row(ctx, "Monsters", 1)
	require.NoError(t, err)
	assert.Equal(t, 7, orig.(*model.Monster).BaseStats.Strength, "copy must not share nested records")

	assert.Equal(t, []int{1, 2, 3, 5}, ids(t, s, "Monsters"))

	_, err = s.CopyRow(ctx, "Monsters", 42)
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestService_DeleteRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Items", "ID,Name\r\n1,A\r\n2,B\r\n")

	require.NoError(t, s.DeleteRow(ctx, "Items", 1))
	assert.Equal(t, []int{2}, ids(t, s, "Items"))

	assert.ErrorIs(t, s.DeleteRow(ctx, "Items", 1), ErrRowNotFound)
	assert.ErrorIs(t, s.DeleteRow(ctx, "Dragons", 1), ErrUnknownTable)
}

func TestService_UpdateRow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name,HP\r\n1,Wolf,30\r\n")

	rep, err := s.UpdateRow(ctx, "Monsters", 1, map[string]string{
		"ID":                                  "8",
		"HP":                                  "35",
		"BaseStats.ElementalResistances.Fire": "12",
		"State":                               "Nope",
	})
	require.NoError(t, err)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "State", rep.Failed[0].Column)

	rec, err := s.Row(ctx, "Monsters", 1)
	require.NoError(t, err)
	m := rec.(*model.Monster)
	assert.Equal(t, 35, m.HP)
	require.NotNil(t, m.BaseStats)
	assert.Equal(t, 12, m.BaseStats.ElementalResistances.Fire)
}

func TestService_ChangeRowID(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name\r\n1,Wolf\r\n2,Bat\r\n3,Ogre\r\n")
	seed(t, s, "Quests", "ID,Name,GiverNPC\r\n1,Bats,2\r\n2,Wolves,1\r\n3,More bats,2\r\n")
	seed(t, s, "Items", "ID,Name\r\n2,Bat wing\r\n")

	n, err := s.ChangeRowID(ctx, "Monsters", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []int{1, 3, 10}, ids(t, s, "Monsters"))
	for id, want := range map[int]int{1: 10, 2: 1, 3: 10} {
		q, err := s.Row(ctx, "Quests", id)
		require.NoError(t, err)
		assert.Equal(t, want, q.(*model.Quest).GiverNPC.ID, "quest %d", id)
	}
	assert.Equal(t, []int{2}, ids(t, s, "Items"), "items do not reference monsters")
}

func TestService_ChangeRowIDRejected(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name\r\n1,Wolf\r\n2,Bat\r\n")

	tests := []struct {
		name    string
		oldID   int
		newID   int
		wantErr error
	}{
		{"duplicate", 1, 2, ErrDuplicateID},
		{"missing", 5, 6, ErrRowNotFound},
		{"zero", 1, 0, ErrInvalidID},
		{"negative", 1, -3, ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ChangeRowID(ctx, "Monsters", tt.oldID, tt.newID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, []int{1, 2}, ids(t, s, "Monsters"))

	n, err := s.ChangeRowID(ctx, "Monsters", 1, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_TablesAndSchema(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Items", "ID,Name\r\n1,A\r\n2,B\r\n")

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	counts := make(map[string]int)
	for _, tbl := range tables {
		counts[tbl.Key] = tbl.Rows
	}
	assert.Equal(t, map[string]int{"Items": 2, "Monsters": 0, "Quests": 0}, counts)

	header, err := s.Header("Quests")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name", "State", "Title", "RequiredLevel", "GiverNPC"}, header)

	schema, err := s.Schema("Monsters")
	require.NoError(t, err)
	assert.Equal(t, "model.Monster", schema.Type)

	_, err = s.Header("Dragons")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestService_Fields(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s, "Quests", "ID,Name,Title,GiverNPC\r\n4,Hunt,Kill,2\r\n")

	fields, err := s.Fields(context.Background(), "Quests", 4)
	require.NoError(t, err)

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"ID", "Name", "State", "Title", "RequiredLevel", "GiverNPC"}, names)
	assert.Equal(t, "2", fields[5].Value)
	assert.Equal(t, "Monster", fields[5].References)
	assert.True(t, fields[4].Null)
}

func TestService_Preview(t *testing.T) {
	s, _ := newTestService(t)
	seed(t, s, "Items", "ID,Name,Value\r\n1,A,3\r\n2,B,\r\n3,C,\r\n")

	p, err := s.Preview(context.Background(), "Items", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, []string{"ID", "Name", "State", "Value"}, p.Header)
	assert.Equal(t, [][]string{{"1", "A", "Active", "3"}, {"2", "B", "Active", ""}}, p.Rows)
}

func TestService_ExportImportAll(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	dir := t.TempDir()
	seed(t, s, "Items", "ID,Name\r\n1,Sword\r\n")
	seed(t, s, "Monsters", "ID,Name,HP\r\n1,Wolf,30\r\n")

	exported, err := s.ExportAll(ctx, dir)
	require.NoError(t, err)
	require.Len(t, exported, 2, "empty Quests table is not written")
	assert.NoFileExists(t, filepath.Join(dir, "Quests.csv"))

	// Saved by a spreadsheet as UTF-16 with a BOM.
	utf16 := []byte{0xFF, 0xFE}
	for _, c := range "ID,Name,GiverNPC\r\n7,Hunt,1\r\n" {
		utf16 = append(utf16, byte(c), 0)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Quests.csv"), utf16, 0o644))

	fresh, _ := newTestService(t)
	results, err := fresh.ImportAll(ctx, dir, ModeReplace)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	for _, key := range []string{"Items", "Monsters"} {
		want, err := s.ExportTable(ctx, key)
		require.NoError(t, err)
		got, err := fresh.ExportTable(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
	q, err := fresh.Row(ctx, "Quests", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, q.(*model.Quest).GiverNPC.ID)
}

func TestService_ImportAllKeepsGoing(t *testing.T) {
	s, _ := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Items.csv"), []byte("Name\r\nSword\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Monsters.csv"), []byte("ID,Name\r\n3,Wolf\r\n"), 0o644))

	results, err := s.ImportAll(context.Background(), dir, ModeReplace)
	assert.ErrorIs(t, err, ErrNoIDColumn)
	require.Len(t, results, 1)
	assert.Equal(t, "Monsters", results[0].Table)
}

func TestService_ImportReaderTooLarge(t *testing.T) {
	store := newMemStore()
	s := NewService(store, ServiceConfig{MaxImportSize: 8})

	_, err := s.ImportReader(context.Background(), "Items", strings.NewReader("ID,Name\r\n1,Sword\r\n"), ModeReplace)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestService_TransferBusy(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Limiter().Acquire(ctx))
	defer s.Limiter().Release()

	_, err := s.ExportTable(ctx, "Items")
	assert.ErrorIs(t, err, ErrTransferBusy)
}

func TestService_TryImportReaderDoesNotWait(t *testing.T) {
	s := NewService(newMemStore(), ServiceConfig{MaxWait: 5 * time.Second})
	ctx := context.Background()

	require.NoError(t, s.Limiter().Acquire(ctx))
	start := time.Now()
	_, err := s.TryImportReader(ctx, "Items", strings.NewReader("ID,Name\r\n1,Sword\r\n"), ModeReplace)
	assert.ErrorIs(t, err, ErrTransferBusy)
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, s.History("Items", 0), "refused import is not a transfer")
	s.Limiter().Release()

	res, err := s.TryImportReader(ctx, "Items", strings.NewReader("ID,Name\r\n1,Sword\r\n"), ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Zero(t, s.Limiter().ActiveCount())
}

func TestService_MutationsTakeTransferSlot(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name,HP\r\n1,Rat,5\r\n")

	require.NoError(t, s.Limiter().Acquire(ctx))

	mutations := []struct {
		name string
		run  func() error
	}{
		{"add", func() error { _, err := s.AddRow(ctx, "Monsters"); return err }},
		{"copy", func() error { _, err := s.CopyRow(ctx, "Monsters", 1); return err }},
		{"delete", func() error { return s.DeleteRow(ctx, "Monsters", 1) }},
		{"update", func() error { _, err := s.UpdateRow(ctx, "Monsters", 1, map[string]string{"HP": "9"}); return err }},
		{"renumber", func() error { _, err := s.ChangeRowID(ctx, "Monsters", 1, 5); return err }},
	}
	for _, m := range mutations {
		assert.ErrorIs(t, m.run(), ErrTransferBusy, m.name)
	}
	s.Limiter().Release()

	assert.Equal(t, []int{1}, ids(t, s, "Monsters"))
	_, err := s.ChangeRowID(ctx, "Monsters", 1, 5)
	require.NoError(t, err)
	assert.Zero(t, s.Limiter().ActiveCount())
}

func TestService_DrainWaitsForMutation(t *testing.T) {
	store := newMemStore()
	s := NewService(store, ServiceConfig{MaxWait: time.Second})
	ctx := context.Background()

	store.mu.Lock()
	added := make(chan error, 1)
	go func() {
		_, err := s.AddRow(ctx, "Items")
		added <- err
	}()
	require.Eventually(t, func() bool { return s.Limiter().ActiveCount() == 1 }, time.Second, 5*time.Millisecond)

	drainCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitForDrain(drainCtx), context.DeadlineExceeded)

	store.mu.Unlock()
	require.NoError(t, <-added)
	require.NoError(t, s.WaitForDrain(ctx))
}

func TestService_HistoryAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(newMemStore(), ServiceConfig{Registerer: reg})
	ctx := ContextWithActor(context.Background(), "tester")

	_, err := s.ImportTable(ctx, "Items", "ID,Name\r\n1,Sword\r\nx,Bad\r\n", ModeReplace)
	require.NoError(t, err)
	_, err = s.ExportTable(ctx, "Items")
	require.NoError(t, err)
	_, err = s.ImportTable(ctx, "Items", "", ModeReplace)
	require.Error(t, err)

	entries := s.History("Items", 0)
	require.Len(t, entries, 3)
	assert.Equal(t, DirectionImport, entries[0].Direction)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, DirectionExport, entries[1].Direction)
	assert.Equal(t, 1, entries[1].Rows)
	assert.Equal(t, 1, entries[2].Skipped)
	assert.Equal(t, "tester", entries[2].Actor)

	got, ok := s.Transfer(entries[1].ID)
	require.True(t, ok)
	assert.Equal(t, entries[1], got)

	families, err := reg.Gather()
	require.NoError(t, err)
	totals := make(map[string]float64)
	for _, f := range families {
		if f.GetName() != "gamedata_transfers_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			key := ""
			for _, l := range m.GetLabel() {
				key += l.GetValue() + "/"
			}
			totals[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"import/ok/Items/":    1,
		"export/ok/Items/":    1,
		"import/error/Items/": 1,
	}, totals)
}

func TestService_Reload(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	seed(t, s, "Monsters", "ID,Name,HP\r\n1,Rat,5\r\n2,Wolf,30\r\n")

	store.mu.Lock()
	delete(store.saved, "Monsters")
	store.mu.Unlock()

	assert.Equal(t, []int{1, 2}, ids(t, s, "Monsters"), "cached rows until reload")

	s.Reload()
	p, err := s.Preview(ctx, "Monsters", 0)
	require.NoError(t, err)
	assert.Zero(t, p.Total)
}
