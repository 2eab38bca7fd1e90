package tables

import (
	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/model"
)

func init() {
	registerMonsters()
}

func registerMonsters() {
	core.Register(core.Define[model.Monster]("Creatures"))
}
