package model

import (
	"github.com/JonMunkholm/gamedata/internal/codec"
)

// Item is an inventory item. Every domain field is optional.
type Item struct {
	BaseRow
	Value       *int    `json:"Value"`
	Description *string `json:"Description"`
	Damage      *int    `json:"Damage"`
	Type        *string `json:"Type"`
}

// Monster is a combatant. Tags and Auras have fixed slot counts; empty
// aura slots are nil.
type Monster struct {
	BaseRow
	HP         int       `json:"HP"`
	Attack     int       `json:"Attack"`
	Experience int       `json:"Experience"`
	BaseStats  *Stats    `json:"BaseStats"`
	Tags       [3]string `json:"Tags"`
	Auras      [8]*Aura  `json:"Auras"`
}

// Quest is handed out by a monster.
type Quest struct {
	BaseRow
	Title         *string                   `json:"Title"`
	RequiredLevel *int                      `json:"RequiredLevel"`
	GiverNPC      codec.ForeignKey[Monster] `json:"GiverNPC"`
}

// Stats are a monster's base attributes.
type Stats struct {
	Strength             int         `json:"Strength"`
	Dexterity            int         `json:"Dexterity"`
	Intelligence         int         `json:"Intelligence"`
	ElementalResistances Resistances `json:"ElementalResistances"`
}

type Resistances struct {
	Fire      int `json:"Fire"`
	Ice       int `json:"Ice"`
	Lightning int `json:"Lightning"`
	Poison    int `json:"Poison"`
}

// Aura is a timed effect.
type Aura struct {
	Name     string  `json:"Name"`
	Damage   int     `json:"Damage"`
	Duration float32 `json:"Duration"`
}

// Ptr returns a pointer to v, for populating optional fields.
func Ptr[T any](v T) *T { return &v }
