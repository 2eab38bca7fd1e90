package tables

import (
	"github.com/JonMunkholm/gamedata/internal/core"
	"github.com/JonMunkholm/gamedata/internal/model"
)

func init() {
	registerItems()
}

func registerItems() {
	core.Register(core.Define[model.Item]("Inventory"))
}
