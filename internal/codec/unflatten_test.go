package codec

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnflatten_Scalars(t *testing.T) {
	var b Beast

	report := Unflatten(&b, map[string]string{
		"ID":    "5",
		"Name":  "Boar",
		"State": "epic",
		"Level": " 12 ",
		"Note":  "tusks",
	})

	assert.True(t, report.Clean())
	assert.Equal(t, 5, b.ID)
	assert.Equal(t, "Boar", b.Name)
	assert.Equal(t, Epic, b.State)
	assert.Equal(t, 12, b.Level)
	require.NotNil(t, b.Note)
	assert.Equal(t, "tusks", *b.Note)
}

func TestUnflatten_EmptyCellKeepsValue(t *testing.T) {
	b := Beast{Level: 9, Note: strPtr("keep")}
	b.Name = "Old"

	report := Unflatten(&b, map[string]string{"Level": "", "Note": "", "Name": ""})

	assert.True(t, report.Clean())
	assert.Equal(t, 9, b.Level)
	assert.Equal(t, "keep", *b.Note)
	assert.Equal(t, "Old", b.Name)
}

func TestUnflatten_BadCellKeepsPriorValue(t *testing.T) {
	b := Beast{Level: 3}
	b.State = Rare

	report := Unflatten(&b, map[string]string{
		"Level": "three",
		"State": "Legendary",
		"Name":  "Still applied",
	})

	assert.Equal(t, 3, b.Level)
	assert.Equal(t, Rare, b.State)
	assert.Equal(t, "Still applied", b.Name)

	require.Len(t, report.Failed, 2)
	assert.Equal(t, "Level", report.Failed[0].Column)
	assert.Equal(t, "three", report.Failed[0].Value)
	assert.Equal(t, "State", report.Failed[1].Column)
	assert.ErrorContains(t, report.Failed[1], "Legendary")
}

func TestUnflatten_UnknownColumns(t *testing.T) {
	var b Beast

	report := Unflatten(&b, map[string]string{
		"Bogus":       "1",
		"Level.x":     "2",
		"Attrs":       "3",
		"Loot.first":  "4",
		"Attrs.Speed": "5",
	})

	assert.Equal(t, []string{"Attrs", "Attrs.Speed", "Bogus", "Level.x", "Loot.first"}, report.Unknown)
	assert.Empty(t, report.Failed)
}

func TestUnflatten_NestedAllocatedOnDemand(t *testing.T) {
	var b Beast

	Unflatten(&b, map[string]string{"Attrs.Resist.Fire": "4"})

	require.NotNil(t, b.Attrs)
	assert.Equal(t, Attrs{Resist: Resist{Fire: 4}}, *b.Attrs)
}

func TestUnflatten_BlankNestedStaysNil(t *testing.T) {
	var b Beast

	Unflatten(&b, map[string]string{
		"Attrs.Strength":    "",
		"Attrs.Resist.Fire": "",
	})

	assert.Nil(t, b.Attrs)
}

func TestUnflatten_NestedUpdatesExisting(t *testing.T) {
	b := Beast{Attrs: &Attrs{Strength: 1, Dexterity: 2}}
	existing := b.Attrs

	Unflatten(&b, map[string]string{"Attrs.Dexterity": "7"})

	assert.Same(t, existing, b.Attrs)
	assert.Equal(t, Attrs{Strength: 1, Dexterity: 7}, *b.Attrs)
}

func TestUnflatten_ListIsReset(t *testing.T) {
	b := Beast{Loot: []string{"x", "y", "z"}}

	Unflatten(&b, map[string]string{"Loot.0": "a"})

	assert.Equal(t, []string{"a"}, b.Loot)
}

func TestUnflatten_ListPlacesByIndex(t *testing.T) {
	var b Beast

	Unflatten(&b, map[string]string{"Loot.2": "c", "Loot.0": "a", "Loot.1": ""})

	assert.Equal(t, []string{"a", "", "c"}, b.Loot)
}

func TestUnflatten_TrailingEmptyElementDropped(t *testing.T) {
	in := Beast{Loot: []string{"x", ""}}
	cells := map[string]string{}
	for col, v := range Flatten(in) {
		if strings.HasPrefix(col, "Loot.") {
			cells[col] = FormatValue(v)
		}
	}
	require.Equal(t, map[string]string{"Loot.0": "x", "Loot.1": ""}, cells)

	var out Beast
	Unflatten(&out, cells)

	assert.Equal(t, []string{"x"}, out.Loot)
}

func TestUnflatten_BlankListLeftAlone(t *testing.T) {
	b := Beast{Loot: []string{"x"}}

	Unflatten(&b, map[string]string{"Loot.0": "", "Loot.1": ""})

	assert.Equal(t, []string{"x"}, b.Loot)
}

func TestUnflatten_ListIndexLimit(t *testing.T) {
	var b Beast

	report := Unflatten(&b, map[string]string{"Loot.99999999": "far", "Loot.0": "near"})

	assert.Equal(t, []string{"near"}, b.Loot)
	assert.Equal(t, []string{"Loot.99999999"}, report.Unknown)
}

func TestUnflatten_ArrayKeepsCapacity(t *testing.T) {
	b := Beast{Tags: [3]string{"p", "q", "r"}}

	report := Unflatten(&b, map[string]string{"Tags.1": "b", "Tags.5": "overflow"})

	assert.Equal(t, [3]string{"p", "b", "r"}, b.Tags)
	assert.Len(t, b.Tags, 3)
	assert.Equal(t, []string{"Tags.5"}, report.Unknown)
}

func TestUnflatten_ArrayElementBuiltFresh(t *testing.T) {
	b := Beast{}
	b.Effects[0] = &Effect{Name: "old", Damage: 9, Duration: 2}
	b.Effects[2] = &Effect{Name: "untouched"}

	Unflatten(&b, map[string]string{
		"Effects.0.Name": "new",
		"Effects.1.Name": "",
	})

	assert.Equal(t, &Effect{Name: "new"}, b.Effects[0])
	assert.Nil(t, b.Effects[1])
	assert.Equal(t, &Effect{Name: "untouched"}, b.Effects[2])
}

func TestUnflatten_ListOfRecords(t *testing.T) {
	var b Beast

	report := Unflatten(&b, map[string]string{
		"Drops.1.Name":     "Claw",
		"Drops.1.Duration": "0.5",
		"Drops.0.Damage":   "2",
	})

	assert.True(t, report.Clean())
	assert.Equal(t, []Effect{{Damage: 2}, {Name: "Claw", Duration: 0.5}}, b.Drops)
}

func TestUnflatten_ForeignKey(t *testing.T) {
	var e Errand

	report := Unflatten(&e, map[string]string{"Giver": "12", "Reward": "x"})

	assert.Equal(t, 12, e.Giver.ID)
	assert.Nil(t, e.Reward)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "Reward", report.Failed[0].Column)
}

func TestUnflatten_TextPrimitive(t *testing.T) {
	var tg Tagged

	report := Unflatten(&tg, map[string]string{
		"Token":   "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"Count":   "70000",
		"Flag":    "TRUE",
		"Ratio":   "1.5",
		"Weights": "map[a:1]",
	})

	assert.Equal(t, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), tg.Token)
	assert.Equal(t, uint16(0), tg.Count)
	assert.True(t, tg.Flag)
	assert.Equal(t, 1.5, tg.Ratio)
	assert.Nil(t, tg.Weights)

	var failed []string
	for _, f := range report.Failed {
		failed = append(failed, f.Column)
	}
	assert.Equal(t, []string{"Count", "Weights"}, failed)
}

func TestUnflatten_InvalidTargets(t *testing.T) {
	var b Beast
	raw := map[string]string{"ID": "1"}

	assert.True(t, Unflatten(b, raw).Clean())
	assert.True(t, Unflatten(nil, raw).Clean())
	assert.Zero(t, b.ID)

	n := 3
	assert.True(t, Unflatten(&n, raw).Clean())
	assert.Equal(t, 3, n)
}

type Charm struct {
	Name  string
	Power int
}

type Amulet struct {
	ID     int
	Charms [2]Charm
}

func TestUnflatten_UsesRegisteredFactory(t *testing.T) {
	RegisterFactory(func() *Charm { return &Charm{Power: 10} })

	var a Amulet
	Unflatten(&a, map[string]string{"Charms.1.Name": "Luck"})

	assert.Equal(t, Charm{}, a.Charms[0])
	assert.Equal(t, Charm{Name: "Luck", Power: 10}, a.Charms[1])
	assert.Equal(t, &Charm{Power: 10}, New(reflect.TypeFor[Charm]()))
}
