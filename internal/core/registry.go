package core

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/JonMunkholm/gamedata/internal/codec"
)

var (
	registry   = make(map[string]TableDefinition)
	registryMu sync.RWMutex
)

// Register adds a table definition to the registry. An empty Key is derived
// from the record type name with TableKey, an empty Label is the type name.
// The definition's constructor is also registered with the codec.
// Panics if a table with the same key is already registered.
func Register(def TableDefinition) {
	if def.New == nil {
		panic("table definition without constructor")
	}
	t := def.Type()
	if def.Info.Key == "" {
		def.Info.Key = TableKey(t.Name())
	}
	if def.Info.Label == "" {
		def.Info.Label = t.Name()
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	registry[def.Info.Key] = def

	newRecord := def.New
	codec.RegisterFactoryFunc(t, func() any { return newRecord() })
}

// Get returns a table definition by key.
// Returns false if not found.
func Get(key string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// ByType returns the definition whose records have type t.
func ByType(t reflect.Type) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if def.Type() == t {
			return def, true
		}
	}
	return TableDefinition{}, false
}

// All returns all registered table definitions.
// Sorted by group then by key for consistent ordering.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]TableDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered tables.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableDefinition)
}
