package tables

import (
	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/model"
)

func init() {
	registerQuests()
}

// Quests reference Monsters through GiverNPC, so renumbering a monster
// rewrites the quests that point at it.
func registerQuests() {
	core.Register(core.Define[model.Quest]("Quests"))
}
