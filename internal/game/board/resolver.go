package board

import (
	"fmt"

	"github.com/boardloop/turn-engine/internal/game/models"
)

// Resolution is the outcome of landing on a tile
type Resolution struct {
	Position       int                   `json:"position"`
	Category       TileKind              `json:"category"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
	Message        string                `json:"message"`
	Tile           Tile                  `json:"tile"`
	Property       *models.Property      `json:"property,omitempty"`
}

// Resolve decides the required action for a player landing on position.
// prop is the property at that position, or nil when the tile is not purchasable.
// It does not mutate anything.
func Resolve(position int, prop *models.Property, actingPlayerID int64) Resolution {
	position = Normalize(position)

	if prop != nil {
		res := Resolution{
			Position: position,
			Category: TileProperty,
			Tile:     Tile{Kind: TileProperty, Name: prop.Name},
			Property: prop,
		}
		switch {
		case !prop.IsOwned():
			res.RequiredAction = models.ActionBuy
			res.Message = fmt.Sprintf("%s is unowned and costs $%d", prop.Name, prop.Price)
		case prop.OwnedBy(actingPlayerID):
			res.RequiredAction = models.ActionNone
			res.Message = fmt.Sprintf("You own %s", prop.Name)
		default:
			res.RequiredAction = models.ActionPayRent
			res.Message = fmt.Sprintf("%s is owned by player %d, rent is $%d", prop.Name, *prop.OwnerID, prop.Rent)
		}
		return res
	}

	tile := TileAt(position)
	res := Resolution{
		Position: position,
		Category: tile.Kind,
		Tile:     tile,
	}

	switch tile.Kind {
	case TileChance:
		res.RequiredAction = models.ActionChance
		res.Message = "Draw a Chance card"
	case TileCommunityChest:
		res.RequiredAction = models.ActionCommunityChest
		res.Message = "Draw a Community Chest card"
	case TileTax:
		amount, _ := TaxAmount(position)
		res.RequiredAction = models.ActionTax
		res.Message = fmt.Sprintf("%s: pay $%d", tile.Name, amount)
	case TileGoToJail:
		res.RequiredAction = models.ActionGoToJail
		res.Message = "Go directly to jail"
	default:
		res.RequiredAction = models.ActionNone
		res.Message = fmt.Sprintf("Landed on %s", tile.Name)
	}

	return res
}
