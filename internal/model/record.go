// Package model defines the game-data records edited by gamedata.
//
// Every record embeds BaseRow, which supplies the identity fields ID, Name
// and State. Those fields lead every CSV header and field listing.
package model

import (
	"fmt"
	"strconv"

	"github.com/JonMunkholm/gamedata/internal/codec"
)

// Record is implemented by pointers to every table row type.
type Record interface {
	Base() *BaseRow
}

// DataState marks the lifecycle of a row.
type DataState int

const (
	Active DataState = iota
	Inactive
	Deprecated
)

var dataStateNames = []string{"Active", "Inactive", "Deprecated"}

// EnumValues implements codec.Enum.
func (DataState) EnumValues() []string { return dataStateNames }

func (s DataState) String() string {
	return codec.EnumName(s)
}

func (s DataState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DataState) UnmarshalText(b []byte) error {
	v, err := codec.ParseEnum[DataState](string(b))
	if err != nil {
		return fmt.Errorf("data state: %w", err)
	}
	*s = v
	return nil
}

// BaseRow holds the identity shared by all records.
type BaseRow struct {
	ID    int       `json:"ID"`
	Name  string    `json:"Name"`
	State DataState `json:"State"`
}

// Base implements Record.
func (b *BaseRow) Base() *BaseRow { return b }

// DisplayName is "ID - Name", the label used in listings and reference pickers.
func (b *BaseRow) DisplayName() string {
	return strconv.Itoa(b.ID) + " - " + b.Name
}
