package codec

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBeasts() []Beast {
	return []Beast{
		{
			Identity: Identity{ID: 1, Name: "Rat", State: Common},
			Level:    1,
			Tags:     [3]string{"small", "", ""},
		},
		{
			Identity: Identity{ID: 2, Name: "Wolf, grey", State: Rare},
			Level:    4,
			Attrs:    &Attrs{Strength: 6, Dexterity: 9, Resist: Resist{Fire: -2, Ice: 15}},
			Tags:     [3]string{"pack", "night", "fast"},
			Effects:  [4]*Effect{1: {Name: "Howl", Damage: 0, Duration: 2.5}},
			Loot:     []string{"fang", "pelt"},
			Drops:    []Effect{{Name: "Bleed", Damage: 3, Duration: 1.25}},
			Note:     strPtr(`says "awoo"`),
		},
		{
			Identity: Identity{ID: 10, Name: "Drake", State: Epic},
			Level:    30,
			Attrs:    &Attrs{Strength: 40},
			Effects: [4]*Effect{
				0: {Name: "Burn", Damage: 12, Duration: 4},
				3: {Name: "Fear", Damage: 0, Duration: 0.5},
			},
			Drops: []Effect{
				{Name: "Scale", Damage: 0, Duration: 0},
				{Name: "Ember\nGlow", Damage: 1, Duration: 3},
			},
		},
	}
}

func TestFlatten_Scalars(t *testing.T) {
	row := Flatten(sampleBeasts()[1])

	assert.Equal(t, int64(2), row["ID"])
	assert.Equal(t, "Wolf, grey", row["Name"])
	assert.Equal(t, "Rare", row["State"])
	assert.Equal(t, int64(4), row["Level"])
	assert.Equal(t, int64(-2), row["Attrs.Resist.Fire"])
	assert.Equal(t, "night", row["Tags.1"])
	assert.Equal(t, "Howl", row["Effects.1.Name"])
	assert.Equal(t, float32(2.5), row["Effects.1.Duration"])
	assert.Equal(t, "pelt", row["Loot.1"])
	assert.Equal(t, "Bleed", row["Drops.0.Name"])
	assert.Equal(t, `says "awoo"`, row["Note"])
}

func TestFlatten_SkipsAbsent(t *testing.T) {
	row := Flatten(sampleBeasts()[0])

	for col := range row {
		for _, prefix := range []string{"Attrs", "Effects", "Loot", "Drops", "Note", "Secret"} {
			assert.NotEqual(t, prefix, SplitPath(col)[0], "unexpected column %s", col)
		}
	}
	assert.Len(t, row, 7) // ID Name State Level Tags.0-2
}

func TestFlatten_NilAndNonStruct(t *testing.T) {
	var nilBeast *Beast

	assert.Empty(t, Flatten(nil))
	assert.Empty(t, Flatten(nilBeast))
	assert.Empty(t, Flatten(42))
}

func TestFlatten_DoesNotMutate(t *testing.T) {
	in := sampleBeasts()[2]
	before := sampleBeasts()[2]

	Flatten(&in)

	assert.Equal(t, before, in)
}

func TestFlatten_Primitives(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	row := Flatten(Tagged{ID: 1, Token: id, Ratio: 0.75, Count: 9, Flag: true})

	assert.Equal(t, id.String(), row["Token"])
	assert.Equal(t, 0.75, row["Ratio"])
	assert.Equal(t, uint64(9), row["Count"])
	assert.Equal(t, true, row["Flag"])
	assert.NotContains(t, row, "Weights")
	assert.NotContains(t, row, "Any")
}

func TestRoundTrip(t *testing.T) {
	beast := reflect.TypeFor[Beast]()
	in := sampleBeasts()

	rows := make([]Row, len(in))
	for i := range in {
		rows[i] = Flatten(in[i])
	}
	text := WriteTable(TableHeader(beast, rows), rows)

	_, parsed := ParseTable(text)
	require.Len(t, parsed, len(in))

	for i, raw := range parsed {
		var out Beast
		report := Unflatten(&out, raw.Cells)

		assert.Empty(t, report.Failed, "row %d", i)
		assert.Equal(t, in[i], out, "row %d", i)
	}
}

func TestRoundTrip_IsStable(t *testing.T) {
	beast := reflect.TypeFor[Beast]()
	export := func(records []Beast) string {
		rows := make([]Row, len(records))
		for i := range records {
			rows[i] = Flatten(records[i])
		}
		return WriteTable(TableHeader(beast, rows), rows)
	}

	first := export(sampleBeasts())

	_, parsed := ParseTable(first)
	again := make([]Beast, len(parsed))
	for i, raw := range parsed {
		Unflatten(&again[i], raw.Cells)
	}

	assert.Equal(t, first, export(again))
}
