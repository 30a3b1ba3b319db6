// Package board holds the static board layout and the tile resolver.
package board

import (
	"github.com/boardloop/turn-engine/internal/game/models"
)

const (
	// GoPosition is the start tile
	GoPosition = 0
	// JailPosition is the Jail / Just Visiting tile
	JailPosition = 10
	// GoToJailPosition is the tile that sends the player to jail
	GoToJailPosition = 30
)

// TileKind is the category of a board tile
type TileKind string

const (
	TileProperty       TileKind = "property"
	TileGo             TileKind = "go"
	TileJail           TileKind = "jail"
	TileFreeParking    TileKind = "free_parking"
	TileGoToJail       TileKind = "go_to_jail"
	TileChance         TileKind = "chance"
	TileCommunityChest TileKind = "community_chest"
	TileTax            TileKind = "tax"
	TileUnknown        TileKind = "unknown"
)

// Tile is a non-property board tile
type Tile struct {
	Kind TileKind `json:"kind"`
	Name string   `json:"name"`
}

var specialTiles = map[int]Tile{
	0:  {Kind: TileGo, Name: "GO"},
	2:  {Kind: TileCommunityChest, Name: "Community Chest"},
	4:  {Kind: TileTax, Name: "Income Tax"},
	7:  {Kind: TileChance, Name: "Chance"},
	10: {Kind: TileJail, Name: "Jail / Just Visiting"},
	17: {Kind: TileCommunityChest, Name: "Community Chest"},
	20: {Kind: TileFreeParking, Name: "Free Parking"},
	22: {Kind: TileChance, Name: "Chance"},
	30: {Kind: TileGoToJail, Name: "Go To Jail"},
	33: {Kind: TileCommunityChest, Name: "Community Chest"},
	36: {Kind: TileChance, Name: "Chance"},
	38: {Kind: TileTax, Name: "Luxury Tax"},
}

var taxAmounts = map[int]int{
	4:  200,
	38: 100,
}

// TileAt returns the non-property tile at a position. Unlisted positions are passive.
func TileAt(position int) Tile {
	if tile, ok := specialTiles[Normalize(position)]; ok {
		return tile
	}
	return Tile{Kind: TileUnknown, Name: "Unknown"}
}

// TaxAmount returns the tax owed on a tax tile
func TaxAmount(position int) (int, bool) {
	amount, ok := taxAmounts[position]
	return amount, ok
}

// Normalize maps any integer onto the board loop
func Normalize(position int) int {
	p := position % models.BoardSize
	if p < 0 {
		p += models.BoardSize
	}
	return p
}

// Advance moves forward by steps and reports whether the move wrapped past GO
func Advance(from, steps int) (int, bool) {
	to := Normalize(from + steps)
	return to, steps > 0 && to < from
}
