package board

import (
	"github.com/boardloop/turn-engine/internal/game/models"
)

type propertySeed struct {
	position int
	name     string
	group    string
	kind     models.PropertyType
	price    int
	rent     int
}

var propertySeeds = []propertySeed{
	{1, "Mediterranean Avenue", "brown", models.PropertyTypeStreet, 60, 2},
	{3, "Baltic Avenue", "brown", models.PropertyTypeStreet, 60, 4},
	{5, "Reading Railroad", "railroad", models.PropertyTypeRailroad, 200, 25},
	{6, "Oriental Avenue", "light_blue", models.PropertyTypeStreet, 100, 6},
	{8, "Vermont Avenue", "light_blue", models.PropertyTypeStreet, 100, 6},
	{9, "Connecticut Avenue", "light_blue", models.PropertyTypeStreet, 120, 8},
	{11, "St. Charles Place", "pink", models.PropertyTypeStreet, 140, 10},
	{12, "Electric Company", "utility", models.PropertyTypeUtility, 150, 10},
	{13, "States Avenue", "pink", models.PropertyTypeStreet, 140, 10},
	{14, "Virginia Avenue", "pink", models.PropertyTypeStreet, 160, 12},
	{15, "Pennsylvania Railroad", "railroad", models.PropertyTypeRailroad, 200, 25},
	{16, "St. James Place", "orange", models.PropertyTypeStreet, 180, 14},
	{18, "Tennessee Avenue", "orange", models.PropertyTypeStreet, 180, 14},
	{19, "New York Avenue", "orange", models.PropertyTypeStreet, 200, 16},
	{21, "Kentucky Avenue", "red", models.PropertyTypeStreet, 220, 18},
	{23, "Indiana Avenue", "red", models.PropertyTypeStreet, 220, 18},
	{24, "Illinois Avenue", "red", models.PropertyTypeStreet, 240, 20},
	{25, "B. & O. Railroad", "railroad", models.PropertyTypeRailroad, 200, 25},
	{26, "Atlantic Avenue", "yellow", models.PropertyTypeStreet, 260, 22},
	{27, "Ventnor Avenue", "yellow", models.PropertyTypeStreet, 260, 22},
	{28, "Water Works", "utility", models.PropertyTypeUtility, 150, 10},
	{29, "Marvin Gardens", "yellow", models.PropertyTypeStreet, 280, 24},
	{31, "Pacific Avenue", "green", models.PropertyTypeStreet, 300, 26},
	{32, "North Carolina Avenue", "green", models.PropertyTypeStreet, 300, 26},
	{34, "Pennsylvania Avenue", "green", models.PropertyTypeStreet, 320, 28},
	{35, "Short Line", "railroad", models.PropertyTypeRailroad, 200, 25},
	{37, "Park Place", "dark_blue", models.PropertyTypeStreet, 350, 35},
	{39, "Boardwalk", "dark_blue", models.PropertyTypeStreet, 400, 50},
}

type cardSeed struct {
	category models.CardCategory
	text     string
	kind     models.EffectKind
	amount   int
}

var cardSeeds = []cardSeed{
	{models.CardCategoryChance, "Advance to Go. Collect $200", models.EffectMoveTo, GoPosition},
	{models.CardCategoryChance, "Go directly to Jail. Do not pass Go", models.EffectGoToJail, 0},
	{models.CardCategoryChance, "Bank pays you a dividend of $50", models.EffectMoney, 50},
	{models.CardCategoryChance, "Go back 3 spaces", models.EffectMoveBy, -3},
	{models.CardCategoryChance, "Speeding fine, pay $15", models.EffectMoney, -15},
	{models.CardCategoryChance, "Advance to Illinois Avenue", models.EffectMoveTo, 24},
	{models.CardCategoryChance, "Advance to Boardwalk", models.EffectMoveTo, 39},
	{models.CardCategoryChance, "Get out of Jail free", models.EffectJailFree, 0},
	{models.CardCategoryChance, "Your building loan matures. Collect $150", models.EffectMoney, 150},
	{models.CardCategoryChance, "Advance to St. Charles Place", models.EffectMoveTo, 11},
	{models.CardCategoryChance, "Take a trip to Reading Railroad", models.EffectMoveTo, 5},
	{models.CardCategoryChance, "You have been elected chairman of the board, pay $50", models.EffectMoney, -50},
	{models.CardCategoryChance, "Make general repairs on all your property, pay $40", models.EffectMoney, -40},
	{models.CardCategoryChance, "Advance to Pennsylvania Railroad", models.EffectMoveTo, 15},
	{models.CardCategoryChance, "You won a crossword competition. Collect $100", models.EffectMoney, 100},
	{models.CardCategoryChance, "Take a walk on the Short Line", models.EffectMoveTo, 35},

	{models.CardCategoryCommunityChest, "Advance to Go. Collect $200", models.EffectMoveTo, GoPosition},
	{models.CardCategoryCommunityChest, "Bank error in your favor. Collect $200", models.EffectMoney, 200},
	{models.CardCategoryCommunityChest, "Doctor's fee, pay $50", models.EffectMoney, -50},
	{models.CardCategoryCommunityChest, "From sale of stock you get $50", models.EffectMoney, 50},
	{models.CardCategoryCommunityChest, "Get out of Jail free", models.EffectJailFree, 0},
	{models.CardCategoryCommunityChest, "Go directly to Jail. Do not pass Go", models.EffectGoToJail, 0},
	{models.CardCategoryCommunityChest, "Holiday fund matures. Receive $100", models.EffectMoney, 100},
	{models.CardCategoryCommunityChest, "Income tax refund. Collect $20", models.EffectMoney, 20},
	{models.CardCategoryCommunityChest, "It is your birthday. Collect $10", models.EffectMoney, 10},
	{models.CardCategoryCommunityChest, "Life insurance matures. Collect $100", models.EffectMoney, 100},
	{models.CardCategoryCommunityChest, "Pay hospital fees of $100", models.EffectMoney, -100},
	{models.CardCategoryCommunityChest, "Pay school fees of $50", models.EffectMoney, -50},
	{models.CardCategoryCommunityChest, "Receive $25 consultancy fee", models.EffectMoney, 25},
	{models.CardCategoryCommunityChest, "You are assessed for street repairs, pay $40", models.EffectMoney, -40},
	{models.CardCategoryCommunityChest, "You have won second prize in a beauty contest. Collect $10", models.EffectMoney, 10},
	{models.CardCategoryCommunityChest, "You inherit $100", models.EffectMoney, 100},
}

// Properties returns a fresh copy of the purchasable tiles, unowned, ordered by position
func Properties() []*models.Property {
	props := make([]*models.Property, 0, len(propertySeeds))
	for i, s := range propertySeeds {
		props = append(props, &models.Property{
			ID:       int64(i + 1),
			Position: s.position,
			Name:     s.name,
			Group:    s.group,
			Type:     s.kind,
			Price:    s.price,
			Rent:     s.rent,
		})
	}
	return props
}

// Cards returns a fresh copy of both card decks
func Cards() []*models.Card {
	cards := make([]*models.Card, 0, len(cardSeeds))
	for i, s := range cardSeeds {
		cards = append(cards, &models.Card{
			ID:       int64(i + 1),
			Category: s.category,
			Text:     s.text,
			Effect:   models.CardEffect{Kind: s.kind, Amount: s.amount},
		})
	}
	return cards
}
