package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gamedata/internal/codec"
	"github.com/JonMunkholm/gamedata/internal/config"
	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/model"
)

var (
	monsters = core.TableDefinition{
		Info: core.TableInfo{Key: "Monsters", Label: "Monster", Group: "Creatures"},
		New:  func() model.Record { return &model.Monster{} },
	}
	quests = core.TableDefinition{
		Info: core.TableInfo{Key: "Quests", Label: "Quest", Group: "Quests"},
		New:  func() model.Record { return &model.Quest{} },
	}
)

func sampleMonsters() *core.Table {
	t := core.NewTable(monsters)
	t.Rows = []model.Record{
		&model.Monster{
			BaseRow:   model.BaseRow{ID: 1, Name: "Wolf", State: model.Active},
			HP:        30,
			BaseStats: &model.Stats{Strength: 7, ElementalResistances: model.Resistances{Ice: 25}},
			Tags:      [3]string{"beast", "", "pack"},
		},
		&model.Monster{
			BaseRow: model.BaseRow{ID: 4, Name: "Yeti", State: model.Deprecated},
			Auras:   [8]*model.Aura{nil, {Name: "Chill", Damage: 2, Duration: 1.5}},
		},
	}
	return t
}

// exerciseStore runs the behaviour every core.Store must share.
func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("never saved loads empty", func(t *testing.T) {
		got, err := s.Load(ctx, quests)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
		assert.Equal(t, "Quests", got.Key())
	})

	t.Run("round trip", func(t *testing.T) {
		want := sampleMonsters()
		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx, monsters)
		require.NoError(t, err)
		assert.Equal(t, want.Rows, got.Rows)
	})

	t.Run("save replaces", func(t *testing.T) {
		tbl := sampleMonsters()
		tbl.Rows = tbl.Rows[1:]
		require.NoError(t, s.Save(ctx, tbl))

		got, err := s.Load(ctx, monsters)
		require.NoError(t, err)
		require.Len(t, got.Rows, 1)
		assert.Equal(t, 4, got.Rows[0].Base().ID)
	})

	t.Run("tables are independent", func(t *testing.T) {
		q := core.NewTable(quests)
		q.Rows = []model.Record{&model.Quest{
			BaseRow:  model.BaseRow{ID: 9, Name: "Den"},
			Title:    model.Ptr("Clear the den"),
			GiverNPC: codec.Ref[model.Monster](4),
		}}
		require.NoError(t, s.Save(ctx, q))

		gotQ, err := s.Load(ctx, quests)
		require.NoError(t, err)
		assert.Equal(t, q.Rows, gotQ.Rows)

		gotM, err := s.Load(ctx, monsters)
		require.NoError(t, err)
		assert.Len(t, gotM.Rows, 1)
	})

	t.Run("save empty", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, core.NewTable(quests)))
		got, err := s.Load(ctx, quests)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
	})
}

func TestFile(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestFile_WritesIndentedJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), sampleMonsters()))

	data, err := os.ReadFile(filepath.Join(dir, "Monsters.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"ID\": 1,")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestFile_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Monsters.json"), []byte("{not json"), 0o644))

	s, err := NewFile(dir)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), monsters)
	assert.ErrorContains(t, err, "decode Monsters")
}

func TestFile_CancelledContext(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, sampleMonsters()), context.Canceled)
	_, err = s.Load(ctx, monsters)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLite(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "db", "gamedata.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamedata.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), sampleMonsters()))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(context.Background(), monsters)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 2)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("GAMEDATA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GAMEDATA_TEST_DATABASE_URL not set")
	}

	s, err := NewPostgres(context.Background(), config.StoreConfig{Driver: config.DriverPostgres, DatabaseURL: url})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, core.NewTable(monsters)))
	require.NoError(t, s.Save(ctx, core.NewTable(quests)))

	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		want    any
		wantErr bool
	}{
		{"file", config.StoreConfig{Driver: config.DriverFile, DataDir: dir}, &File{}, false},
		{"empty driver", config.StoreConfig{DataDir: dir}, &File{}, false},
		{"sqlite", config.StoreConfig{Driver: "SQLite", SQLitePath: filepath.Join(dir, "x.db")}, &SQLite{}, false},
		{"unknown", config.StoreConfig{Driver: "mongo"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}
