package codec

import (
	"github.com/google/uuid"
)

// Record shapes shared by the codec tests.

type Tier int

const (
	Common Tier = iota
	Rare
	Epic
)

func (Tier) EnumValues() []string { return []string{"Common", "Rare", "Epic"} }

type Identity struct {
	ID    int
	Name  string
	State Tier
}

type Resist struct {
	Fire int
	Ice  int
}

type Attrs struct {
	Strength  int
	Dexterity int
	Resist    Resist
}

type Effect struct {
	Name     string
	Damage   int
	Duration float32
}

// Beast declares Level before its embedded identity so the identity
// ordering has something to do.
type Beast struct {
	Level int
	Identity
	Attrs   *Attrs
	Tags    [3]string
	Effects [4]*Effect
	Loot    []string
	Drops   []Effect
	Note    *string
	Secret  string `csv:"-"`
	hidden  int
}

type Errand struct {
	Identity
	Title  *string
	Giver  ForeignKey[Beast]
	Reward *int
}

type Party struct {
	Identity
	Leader  ForeignKey[Beast]
	Members []ForeignKey[Beast]
	Errand  ForeignKey[Errand]
	Camp    struct {
		Guard ForeignKey[Beast]
	}
}

type Node struct {
	ID       int
	Next     *Node
	Children []Node
}

type Tagged struct {
	ID      int
	Token   uuid.UUID
	Weights map[string]int
	Any     any
	Ratio   float64
	Count   uint16
	Flag    bool
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }
