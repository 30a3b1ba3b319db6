package manager

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/models"
	"github.com/boardloop/turn-engine/internal/game/store"
)

type fixedDice struct {
	rolls [][2]int
	next  int
}

func (d *fixedDice) Roll() (int, int) {
	r := d.rolls[d.next%len(d.rolls)]
	d.next++
	return r[0], r[1]
}

type cardByID int64

func (id cardByID) Pick(cards []*models.Card) *models.Card {
	for _, c := range cards {
		if c.ID == int64(id) {
			return c
		}
	}
	return cards[0]
}

// MockQueue records enqueued game events
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) EnqueueGameEvent(ctx context.Context, event models.GameEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockQueue) eventTypes() []models.EventType {
	var types []models.EventType
	for _, call := range m.Calls {
		types = append(types, call.Arguments.Get(1).(models.GameEvent).Type)
	}
	return types
}

type testGame struct {
	gm      *GameManager
	store   *store.MemoryStore
	players []*models.Player
}

func newTestGame(t *testing.T, opts Options, names ...string) *testGame {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.EnsureBoard(context.Background(), board.Properties(), board.Cards()))

	gm := NewGameManager(st, zaptest.NewLogger(t).Sugar(), opts)
	g := &testGame{gm: gm, store: st}
	for _, name := range names {
		p, err := gm.AddPlayer(context.Background(), name)
		require.NoError(t, err)
		g.players = append(g.players, p)
	}
	return g
}

// arrange writes fixture state directly to the store
func (g *testGame) arrange(t *testing.T, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	require.NoError(t, g.store.WithTx(context.Background(), fn))
}

func (g *testGame) place(t *testing.T, playerID int64, position int, required models.RequiredAction) {
	t.Helper()
	g.arrange(t, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		p.Position = position
		if err := tx.UpdatePlayer(ctx, p); err != nil {
			return err
		}
		st, err := tx.GetState(ctx)
		if err != nil {
			return err
		}
		st.RequiredAction = required
		return tx.SaveState(ctx, st)
	})
}

func (g *testGame) setOwner(t *testing.T, position int, ownerID int64) {
	t.Helper()
	g.arrange(t, func(ctx context.Context, tx store.Tx) error {
		prop, err := tx.PropertyAt(ctx, position)
		if err != nil {
			return err
		}
		prop.OwnerID = models.Int64Ptr(ownerID)
		return tx.UpdateProperty(ctx, prop)
	})
}

func (g *testGame) setCash(t *testing.T, playerID int64, cash int) {
	t.Helper()
	g.arrange(t, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		p.Cash = cash
		return tx.UpdatePlayer(ctx, p)
	})
}

func (g *testGame) player(t *testing.T, id int64) *models.Player {
	t.Helper()
	p, err := g.gm.GetPlayer(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (g *testGame) property(t *testing.T, position int) *models.Property {
	t.Helper()
	var prop *models.Property
	g.arrange(t, func(ctx context.Context, tx store.Tx) error {
		var err error
		prop, err = tx.PropertyAt(ctx, position)
		return err
	})
	return prop
}

// currentID returns the id of the player whose turn it is, or 0 with no players
func (g *testGame) currentID(t *testing.T) int64 {
	t.Helper()
	if id := g.state(t).CurrentPlayerID; id != nil {
		return *id
	}
	return 0
}

func (g *testGame) state(t *testing.T) *StateView {
	t.Helper()
	view, err := g.gm.State(context.Background())
	require.NoError(t, err)
	return view
}

func TestRollLandsOnChance(t *testing.T) {
	g := newTestGame(t, Options{Dice: &fixedDice{rolls: [][2]int{{3, 4}}}}, "alice", "bob")
	alice := g.players[0]

	res, err := g.gm.Roll(context.Background(), alice.ID)
	require.NoError(t, err)

	assert.Equal(t, [2]int{3, 4}, res.Dice)
	assert.Equal(t, 7, res.Position)
	assert.Equal(t, models.ActionChance, res.RequiredAction)
	assert.Equal(t, board.TileChance, res.Tile.Category)
	assert.False(t, res.PassedGo)
	assert.Equal(t, 1500, res.Player.Cash)

	st := g.state(t)
	assert.Equal(t, models.ActionChance, st.RequiredAction)
	assert.Equal(t, [2]int{3, 4}, st.LastDice)
	assert.Equal(t, alice.ID, *st.CurrentPlayerID)
}

func TestRollPassingGoCreditsOnce(t *testing.T) {
	g := newTestGame(t, Options{Dice: &fixedDice{rolls: [][2]int{{3, 4}}}}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 35, models.ActionRoll)

	res, err := g.gm.Roll(context.Background(), alice.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Position)
	assert.True(t, res.PassedGo)
	assert.Equal(t, 1700, g.player(t, alice.ID).Cash)
	assert.Equal(t, models.ActionCommunityChest, res.RequiredAction)
}

func TestRollLandingOnGo(t *testing.T) {
	g := newTestGame(t, Options{Dice: &fixedDice{rolls: [][2]int{{2, 3}}}}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 35, models.ActionRoll)

	res, err := g.gm.Roll(context.Background(), alice.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Position)
	assert.True(t, res.PassedGo)
	assert.Equal(t, 1700, res.Player.Cash)
	assert.Equal(t, models.ActionNone, res.RequiredAction)
}

func TestRollRejections(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]

	_, err := g.gm.Roll(context.Background(), bob.ID)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, err = g.gm.Roll(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	g.place(t, alice.ID, 1, models.ActionBuy)
	_, err = g.gm.Roll(context.Background(), alice.ID)
	assert.ErrorIs(t, err, ErrWrongAction)
	assert.Equal(t, 1, g.player(t, alice.ID).Position)
}

func TestRollNeedsTwoPlayers(t *testing.T) {
	g := newTestGame(t, Options{}, "alice")

	_, err := g.gm.Roll(context.Background(), g.players[0].ID)
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestBuyProperty(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.place(t, alice.ID, 1, models.ActionBuy)

	res, err := g.gm.BuyProperty(context.Background(), alice.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, 1440, res.Player.Cash)
	assert.True(t, res.Property.OwnedBy(alice.ID))
	assert.Equal(t, bob.ID, res.NextPlayerID)
	assert.Equal(t, 2, res.TurnNumber)
	assert.Equal(t, models.ActionRoll, res.RequiredAction)

	assert.Equal(t, 1440, g.player(t, alice.ID).Cash)
	assert.True(t, g.property(t, 1).OwnedBy(alice.ID))
	st := g.state(t)
	assert.Equal(t, 1, st.CurrentPlayerIndex)
	assert.Equal(t, models.ActionRoll, st.RequiredAction)
}

func TestBuyPropertyRejections(t *testing.T) {
	tests := []struct {
		name     string
		required models.RequiredAction
		position int
		arrange  func(t *testing.T, g *testGame)
		want     error
	}{
		{name: "wrong state ROLL", required: models.ActionRoll, position: 1, want: ErrWrongAction},
		{name: "wrong state PAY_RENT", required: models.ActionPayRent, position: 1, want: ErrWrongAction},
		{name: "wrong state TAX", required: models.ActionTax, position: 1, want: ErrWrongAction},
		{name: "wrong state CHANCE", required: models.ActionChance, position: 1, want: ErrWrongAction},
		{name: "wrong state COMMUNITY_CHEST", required: models.ActionCommunityChest, position: 1, want: ErrWrongAction},
		{name: "wrong state GO_TO_JAIL", required: models.ActionGoToJail, position: 1, want: ErrWrongAction},
		{name: "wrong state NONE", required: models.ActionNone, position: 1, want: ErrWrongAction},
		{name: "wrong position", required: models.ActionBuy, position: 3, want: ErrInvalidInput},
		{
			name: "already owned", required: models.ActionBuy, position: 1, want: ErrAlreadyOwned,
			arrange: func(t *testing.T, g *testGame) { g.setOwner(t, 1, g.players[1].ID) },
		},
		{
			name: "insufficient funds", required: models.ActionBuy, position: 1, want: ErrInsufficientFunds,
			arrange: func(t *testing.T, g *testGame) { g.setCash(t, g.players[0].ID, 59) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, Options{}, "alice", "bob")
			alice := g.players[0]
			g.place(t, alice.ID, 1, tt.required)
			if tt.arrange != nil {
				tt.arrange(t, g)
			}
			before := g.player(t, alice.ID).Cash
			ownerBefore := g.property(t, 1).OwnerID

			_, err := g.gm.BuyProperty(context.Background(), alice.ID, tt.position)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, before, g.player(t, alice.ID).Cash)
			assert.Equal(t, ownerBefore, g.property(t, 1).OwnerID)
			assert.Equal(t, tt.required, g.state(t).RequiredAction)
		})
	}
}

func TestPayRent(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.setOwner(t, 39, bob.ID)
	g.place(t, alice.ID, 39, models.ActionPayRent)

	res, err := g.gm.PayRent(context.Background(), alice.ID, 39)
	require.NoError(t, err)

	assert.False(t, res.Bankrupt)
	assert.Equal(t, 50, res.Amount)
	assert.Equal(t, 1450, res.Payer.Cash)
	assert.Equal(t, 1550, res.Owner.Cash)
	assert.Equal(t, bob.ID, *res.NextPlayerID)
	assert.Equal(t, models.ActionRoll, res.RequiredAction)

	assert.Equal(t, 1450, g.player(t, alice.ID).Cash)
	assert.Equal(t, 1550, g.player(t, bob.ID).Cash)
}

func TestPayRentUsesFlatRentForRailroads(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	for _, pos := range []int{5, 15, 25, 35} {
		g.setOwner(t, pos, bob.ID)
	}
	g.place(t, alice.ID, 15, models.ActionPayRent)

	res, err := g.gm.PayRent(context.Background(), alice.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Amount)
}

func TestPayRentBankruptcy(t *testing.T) {
	t.Run("game continues", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		alice, bob, carol := g.players[0], g.players[1], g.players[2]

		// bob owes $200 on alice's Boardwalk with $150 in hand
		g.arrange(t, func(ctx context.Context, tx store.Tx) error {
			prop, err := tx.PropertyAt(ctx, 39)
			if err != nil {
				return err
			}
			prop.Rent = 200
			prop.OwnerID = models.Int64Ptr(alice.ID)
			return tx.UpdateProperty(ctx, prop)
		})
		g.setOwner(t, 1, bob.ID)
		g.setOwner(t, 3, bob.ID)
		g.setCash(t, bob.ID, 150)
		_, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.ErrorIs(t, err, ErrWrongAction)
		g.place(t, alice.ID, 0, models.ActionNone)
		_, err = g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)
		g.place(t, bob.ID, 39, models.ActionPayRent)

		res, err := g.gm.PayRent(context.Background(), bob.ID, 39)
		require.NoError(t, err)

		assert.True(t, res.Bankrupt)
		assert.Equal(t, bob.ID, *res.EliminatedPlayerID)
		assert.False(t, res.GameOver)
		assert.Equal(t, 2, res.RemainingPlayers)
		assert.Equal(t, models.ActionNone, res.RequiredAction)
		assert.Equal(t, 1500, g.player(t, alice.ID).Cash)

		_, err = g.gm.GetPlayer(context.Background(), bob.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, g.property(t, 1).OwnerID)
		assert.Nil(t, g.property(t, 3).OwnerID)
		assert.True(t, g.property(t, 39).OwnedBy(alice.ID))

		// the turn passes to bob's successor
		turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)
		assert.Equal(t, carol.ID, turn.CurrentPlayerID)
	})

	t.Run("game over", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob")
		alice, bob := g.players[0], g.players[1]
		g.setOwner(t, 39, bob.ID)
		g.setOwner(t, 37, alice.ID)
		g.setCash(t, alice.ID, 40)
		g.place(t, alice.ID, 39, models.ActionPayRent)

		res, err := g.gm.PayRent(context.Background(), alice.ID, 39)
		require.NoError(t, err)

		assert.True(t, res.Bankrupt)
		assert.True(t, res.GameOver)
		assert.Equal(t, bob.ID, *res.WinnerID)
		assert.Nil(t, g.property(t, 37).OwnerID)

		st := g.state(t)
		assert.Equal(t, models.GameStatusCompleted, st.Status)
		assert.Equal(t, bob.ID, *st.WinnerID)

		_, err = g.gm.NextTurn(context.Background(), g.currentID(t))
		assert.ErrorIs(t, err, ErrGameOver)
		_, err = g.gm.Roll(context.Background(), bob.ID)
		assert.ErrorIs(t, err, ErrGameOver)
		_, err = g.gm.AddPlayer(context.Background(), "dave")
		assert.ErrorIs(t, err, ErrGameOver)
	})
}

func TestPayRentRequiresOwner(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 39, models.ActionPayRent)

	_, err := g.gm.PayRent(context.Background(), alice.ID, 39)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayTax(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.place(t, alice.ID, 4, models.ActionTax)

	_, err := g.gm.PayTax(context.Background(), alice.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidInput)

	res, err := g.gm.PayTax(context.Background(), alice.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 200, res.Amount)
	assert.Equal(t, 1300, res.Player.Cash)
	assert.Equal(t, bob.ID, *res.NextPlayerID)
	assert.Equal(t, models.ActionRoll, res.RequiredAction)
}

func TestPayTaxBankruptcy(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.setCash(t, alice.ID, 99)
	g.place(t, alice.ID, 38, models.ActionTax)

	res, err := g.gm.PayTax(context.Background(), alice.ID, 38)
	require.NoError(t, err)
	assert.True(t, res.Bankrupt)
	assert.True(t, res.GameOver)
	assert.Equal(t, bob.ID, *res.WinnerID)
	assert.Nil(t, res.Player)
}

func TestGoToJailDoesNotAdvance(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.place(t, alice.ID, board.GoToJailPosition, models.ActionGoToJail)

	res, err := g.gm.GoToJail(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, board.JailPosition, res.Player.Position)
	assert.True(t, res.Player.InJail)
	assert.Equal(t, models.ActionNone, res.RequiredAction)
	assert.Equal(t, 1500, res.Player.Cash)

	st := g.state(t)
	assert.Equal(t, alice.ID, *st.CurrentPlayerID)
	assert.Equal(t, 1, st.TurnNumber)

	turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
	require.NoError(t, err)
	assert.Equal(t, bob.ID, turn.CurrentPlayerID)
	assert.Equal(t, 2, turn.TurnNumber)
}

func TestJailRelease(t *testing.T) {
	jailAlice := func(t *testing.T, g *testGame) {
		g.arrange(t, func(ctx context.Context, tx store.Tx) error {
			p, err := tx.GetPlayer(ctx, g.players[0].ID)
			if err != nil {
				return err
			}
			p.Position = board.JailPosition
			p.InJail = true
			return tx.UpdatePlayer(ctx, p)
		})
	}

	t.Run("move", func(t *testing.T) {
		g := newTestGame(t, Options{Dice: &fixedDice{rolls: [][2]int{{3, 4}}}}, "alice", "bob")
		jailAlice(t, g)

		res, err := g.gm.Roll(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.True(t, res.ReleasedFromJail)
		assert.Equal(t, 17, res.Position)
		assert.False(t, res.Player.InJail)
		assert.Equal(t, models.ActionCommunityChest, res.RequiredAction)
	})

	t.Run("skip", func(t *testing.T) {
		g := newTestGame(t, Options{JailRelease: JailReleaseSkip, Dice: &fixedDice{rolls: [][2]int{{3, 4}}}}, "alice", "bob")
		jailAlice(t, g)

		res, err := g.gm.Roll(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.True(t, res.ReleasedFromJail)
		assert.Equal(t, board.JailPosition, res.Position)
		assert.False(t, res.Player.InJail)
		assert.Equal(t, g.players[1].ID, *res.NextPlayerID)
		assert.Equal(t, models.ActionRoll, res.RequiredAction)
		assert.Equal(t, 2, res.TurnNumber)
	})

	t.Run("skip with jail free card", func(t *testing.T) {
		g := newTestGame(t, Options{JailRelease: JailReleaseSkip, Dice: &fixedDice{rolls: [][2]int{{3, 4}}}}, "alice", "bob")
		jailAlice(t, g)
		g.arrange(t, func(ctx context.Context, tx store.Tx) error {
			p, err := tx.GetPlayer(ctx, g.players[0].ID)
			if err != nil {
				return err
			}
			p.HasJailFreeCard = true
			return tx.UpdatePlayer(ctx, p)
		})

		res, err := g.gm.Roll(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.True(t, res.UsedJailFreeCard)
		assert.Equal(t, 17, res.Position)
		assert.False(t, res.Player.HasJailFreeCard)
	})
}

func TestDrawCard(t *testing.T) {
	const (
		advanceToGo  = 1
		goToJail     = 2
		goBackThree  = 4
		speedingFine = 5
		boardwalk    = 7
		jailFree     = 8
	)

	t.Run("advance to go credits salary", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(advanceToGo)}, "alice", "bob")
		g.place(t, g.players[0].ID, 36, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(advanceToGo), res.Card.ID)
		assert.Equal(t, 0, res.Player.Position)
		assert.True(t, res.PassedGo)
		assert.Equal(t, 1700, res.Player.Cash)
		assert.Equal(t, models.ActionNone, res.RequiredAction)
	})

	t.Run("moving back chains into tax", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(goBackThree)}, "alice", "bob")
		g.place(t, g.players[0].ID, 7, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Player.Position)
		assert.False(t, res.PassedGo)
		assert.Equal(t, 1500, res.Player.Cash)
		assert.Equal(t, models.ActionTax, res.RequiredAction)
		require.NotNil(t, res.Tile)
		assert.Equal(t, board.TileTax, res.Tile.Category)

		tax, err := g.gm.PayTax(context.Background(), g.players[0].ID, 4)
		require.NoError(t, err)
		assert.Equal(t, 1300, tax.Player.Cash)
	})

	t.Run("move chains into rent", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(boardwalk)}, "alice", "bob")
		g.setOwner(t, 39, g.players[1].ID)
		g.place(t, g.players[0].ID, 36, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 39, res.Player.Position)
		assert.Equal(t, models.ActionPayRent, res.RequiredAction)
	})

	t.Run("go to jail", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(goToJail)}, "alice", "bob")
		g.place(t, g.players[0].ID, 36, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.Equal(t, board.JailPosition, res.Player.Position)
		assert.True(t, res.Player.InJail)
		assert.False(t, res.PassedGo)
		assert.Equal(t, 1500, res.Player.Cash)
		assert.Equal(t, models.ActionNone, res.RequiredAction)
	})

	t.Run("jail free card", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(jailFree)}, "alice", "bob")
		g.place(t, g.players[0].ID, 7, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.True(t, res.Player.HasJailFreeCard)
		assert.Equal(t, models.ActionNone, res.RequiredAction)
	})

	t.Run("fine bankrupts", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(speedingFine)}, "alice", "bob", "carol")
		g.setCash(t, g.players[0].ID, 10)
		g.place(t, g.players[0].ID, 7, models.ActionChance)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.True(t, res.Bankrupt)
		assert.False(t, res.GameOver)
		assert.Nil(t, res.Player)

		turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)
		assert.Equal(t, g.players[1].ID, turn.CurrentPlayerID)
	})

	t.Run("community chest deck", func(t *testing.T) {
		g := newTestGame(t, Options{CardPicker: cardByID(17)}, "alice", "bob")
		g.place(t, g.players[0].ID, 2, models.ActionCommunityChest)

		res, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		require.NoError(t, err)
		assert.Equal(t, models.CardCategoryCommunityChest, res.Card.Category)
	})

	t.Run("wrong state", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob")

		_, err := g.gm.DrawCard(context.Background(), g.players[0].ID)
		assert.ErrorIs(t, err, ErrWrongAction)
	})
}

func TestNextTurnAlternates(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")

	for i := 0; i < 6; i++ {
		g.place(t, g.players[i%2].ID, 0, models.ActionNone)
		turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)
		assert.Equal(t, (i+1)%2, turn.CurrentPlayerIndex)
		assert.Equal(t, i+2, turn.TurnNumber)
		assert.Equal(t, models.ActionRoll, turn.RequiredAction)
	}
}

func TestNextTurnDeclinesPurchase(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	g.place(t, g.players[0].ID, 1, models.ActionBuy)

	turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
	require.NoError(t, err)
	assert.Equal(t, g.players[1].ID, turn.CurrentPlayerID)
	assert.Nil(t, g.property(t, 1).OwnerID)
}

func TestNextTurnRejections(t *testing.T) {
	g := newTestGame(t, Options{})
	_, err := g.gm.NextTurn(context.Background(), g.currentID(t))
	assert.ErrorIs(t, err, ErrGameOver)

	g = newTestGame(t, Options{}, "alice", "bob")
	_, err = g.gm.NextTurn(context.Background(), g.currentID(t))
	assert.ErrorIs(t, err, ErrWrongAction)

	_, err = g.gm.NextTurn(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNextTurnDeclineIsReservedToCurrentPlayer(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice, bob := g.players[0], g.players[1]
	g.place(t, alice.ID, 6, models.ActionBuy)

	_, err := g.gm.NextTurn(context.Background(), bob.ID)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	st := g.state(t)
	assert.Equal(t, alice.ID, *st.CurrentPlayerID)
	assert.Equal(t, models.ActionBuy, st.RequiredAction)
	assert.Equal(t, 1, st.TurnNumber)

	_, err = g.gm.BuyProperty(context.Background(), alice.ID, 6)
	require.NoError(t, err)
}

func TestNextTurnFromNoneByAnyPlayer(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	g.place(t, g.players[0].ID, 0, models.ActionNone)

	turn, err := g.gm.NextTurn(context.Background(), g.players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, g.players[1].ID, turn.CurrentPlayerID)
}

func TestEliminate(t *testing.T) {
	t.Run("unknown player is a no-op", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob")

		res, err := g.gm.Eliminate(context.Background(), 42)
		require.NoError(t, err)
		assert.False(t, res.Eliminated)
		assert.False(t, res.GameOver)
		assert.Equal(t, 2, res.RemainingPlayers)
	})

	t.Run("unknown player is a no-op after the game finished", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob")
		_, err := g.gm.Eliminate(context.Background(), g.players[1].ID)
		require.NoError(t, err)
		require.Equal(t, models.GameStatusCompleted, g.state(t).Status)

		res, err := g.gm.Eliminate(context.Background(), 42)
		require.NoError(t, err)
		assert.False(t, res.Eliminated)
		assert.False(t, res.GameOver)
		assert.Equal(t, 1, res.RemainingPlayers)

		_, err = g.gm.Eliminate(context.Background(), g.players[0].ID)
		assert.ErrorIs(t, err, ErrGameOver)
	})

	t.Run("pending rent to the leaving owner becomes a purchase", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		alice, bob := g.players[0], g.players[1]
		g.setOwner(t, 1, bob.ID)
		g.place(t, alice.ID, 1, models.ActionPayRent)

		res, err := g.gm.Eliminate(context.Background(), bob.ID)
		require.NoError(t, err)
		assert.True(t, res.Eliminated)
		assert.False(t, res.GameOver)

		st := g.state(t)
		assert.Equal(t, alice.ID, *st.CurrentPlayerID)
		assert.Equal(t, models.ActionBuy, st.RequiredAction)
		assert.Nil(t, g.property(t, 1).OwnerID)

		_, err = g.gm.PayRent(context.Background(), alice.ID, 1)
		assert.ErrorIs(t, err, ErrWrongAction)

		buy, err := g.gm.BuyProperty(context.Background(), alice.ID, 1)
		require.NoError(t, err)
		assert.True(t, buy.Property.OwnedBy(alice.ID))
		assert.Equal(t, g.players[2].ID, buy.NextPlayerID)
	})

	t.Run("pending rent to another owner is kept", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		alice, bob, carol := g.players[0], g.players[1], g.players[2]
		g.setOwner(t, 1, bob.ID)
		g.setOwner(t, 3, carol.ID)
		g.place(t, alice.ID, 1, models.ActionPayRent)

		_, err := g.gm.Eliminate(context.Background(), carol.ID)
		require.NoError(t, err)

		assert.Equal(t, models.ActionPayRent, g.state(t).RequiredAction)
		_, err = g.gm.PayRent(context.Background(), alice.ID, 1)
		require.NoError(t, err)
	})

	t.Run("releases every property", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		carol := g.players[2]
		for _, pos := range []int{1, 3, 5, 39} {
			g.setOwner(t, pos, carol.ID)
		}

		res, err := g.gm.Eliminate(context.Background(), carol.ID)
		require.NoError(t, err)
		assert.True(t, res.Eliminated)
		assert.Len(t, res.ReleasedProperties, 4)
		for _, pos := range []int{1, 3, 5, 39} {
			assert.Nil(t, g.property(t, pos).OwnerID)
		}
	})

	t.Run("keeps the current player when an earlier player leaves", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		g.place(t, g.players[0].ID, 0, models.ActionNone)
		_, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)

		_, err = g.gm.Eliminate(context.Background(), g.players[0].ID)
		require.NoError(t, err)

		st := g.state(t)
		assert.Equal(t, g.players[1].ID, *st.CurrentPlayerID)
		assert.Equal(t, models.ActionRoll, st.RequiredAction)
	})

	t.Run("last index wraps to the first player", func(t *testing.T) {
		g := newTestGame(t, Options{}, "alice", "bob", "carol")
		for i := 0; i < 2; i++ {
			g.place(t, g.players[i].ID, 0, models.ActionNone)
			_, err := g.gm.NextTurn(context.Background(), g.currentID(t))
			require.NoError(t, err)
		}

		_, err := g.gm.Eliminate(context.Background(), g.players[2].ID)
		require.NoError(t, err)

		turn, err := g.gm.NextTurn(context.Background(), g.currentID(t))
		require.NoError(t, err)
		assert.Equal(t, g.players[0].ID, turn.CurrentPlayerID)
	})
}

// failingStore fails property updates so actions abort half way
type failingStore struct {
	*store.MemoryStore
}

type failingTx struct {
	store.Tx
}

func (failingTx) UpdateProperty(ctx context.Context, prop *models.Property) error {
	return errors.New("disk full")
}

func (s *failingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.MemoryStore.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingTx{Tx: tx})
	})
}

func TestStorageFailureRollsBack(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 1, models.ActionBuy)

	gm := NewGameManager(&failingStore{MemoryStore: g.store}, zaptest.NewLogger(t).Sugar(), Options{})
	_, err := gm.BuyProperty(context.Background(), alice.ID, 1)
	require.Error(t, err)
	assert.False(t, IsRejection(err))

	assert.Equal(t, 1500, g.player(t, alice.ID).Cash)
	st := g.state(t)
	assert.Equal(t, models.ActionBuy, st.RequiredAction)
	assert.Equal(t, 1, st.TurnNumber)
}

func TestAddPlayer(t *testing.T) {
	g := newTestGame(t, Options{MaxPlayers: 2, InitialBalance: 1000}, "alice")

	_, err := g.gm.AddPlayer(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	bob, err := g.gm.AddPlayer(context.Background(), " bob ")
	require.NoError(t, err)
	assert.Equal(t, "bob", bob.Name)
	assert.Equal(t, 1000, bob.Cash)
	assert.Equal(t, 0, bob.Position)
	assert.Greater(t, bob.ID, g.players[0].ID)

	_, err = g.gm.AddPlayer(context.Background(), "carol")
	assert.ErrorIs(t, err, ErrInvalidInput)

	players, err := g.gm.ListPlayers(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestResetGame(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	g.setOwner(t, 39, g.players[0].ID)
	g.place(t, g.players[0].ID, 12, models.ActionBuy)

	require.NoError(t, g.gm.ResetGame(context.Background()))

	players, err := g.gm.ListPlayers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, players)

	props, err := g.gm.ListProperties(context.Background())
	require.NoError(t, err)
	for _, p := range props {
		assert.Nil(t, p.OwnerID, p.Name)
	}

	st := g.state(t)
	assert.Equal(t, models.ActionRoll, st.RequiredAction)
	assert.Equal(t, 1, st.TurnNumber)
	assert.Equal(t, 0, st.CurrentPlayerIndex)
	assert.Equal(t, models.GameStatusActive, st.Status)
	assert.Nil(t, st.CurrentPlayerID)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 1, models.ActionBuy)

	q := new(MockQueue)
	q.On("EnqueueGameEvent", mock.Anything, mock.Anything).Return(nil)
	g.gm.SetMessageQueue(q)

	_, err := g.gm.BuyProperty(context.Background(), alice.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.EventType{models.EventPropertyBought, models.EventTurnAdvanced}, q.eventTypes())

	bought := q.Calls[0].Arguments.Get(1).(models.GameEvent)
	assert.Equal(t, alice.ID, bought.PlayerID)
	assert.Equal(t, 60, bought.Amount)
	assert.NotEmpty(t, bought.ID)

	// rejected actions publish nothing
	_, err = g.gm.BuyProperty(context.Background(), alice.ID, 1)
	require.Error(t, err)
	assert.Len(t, q.Calls, 2)
}

func TestQueueFailureDoesNotFailAction(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")
	alice := g.players[0]
	g.place(t, alice.ID, 1, models.ActionBuy)

	q := new(MockQueue)
	q.On("EnqueueGameEvent", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	g.gm.SetMessageQueue(q)

	_, err := g.gm.BuyProperty(context.Background(), alice.ID, 1)
	require.NoError(t, err)
	assert.True(t, g.property(t, 1).OwnedBy(alice.ID))
}

func TestLockHonoursContext(t *testing.T) {
	g := newTestGame(t, Options{}, "alice", "bob")

	release, err := g.gm.locker.Acquire(context.Background(), gameLockKey)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.gm.Roll(ctx, g.players[0].ID)
	assert.ErrorIs(t, err, context.Canceled)
}
