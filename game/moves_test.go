package game

import (
	"math/rand"
	"testing"

	"github.com/notnil/chess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveTableSize(t *testing.T) {
	// 64*63 ordered pairs plus four promotion variants for each of the
	// 16*63 pairs landing on the first or last rank.
	assert.Equal(t, 64*63+4*16*63, Moves().Size())
}

func TestMoveTableRoundTrip(t *testing.T) {
	table := Moves()
	for i := 0; i < table.Size(); i++ {
		k, ok := table.At(i)
		require.True(t, ok)
		idx, ok := table.Index(k)
		require.True(t, ok)
		assert.Equal(t, i, idx, "index %d does not round-trip", i)
	}
}

func TestMoveTableInjective(t *testing.T) {
	table := Moves()
	seen := make(map[MoveKey]int, table.Size())
	for i := 0; i < table.Size(); i++ {
		k, _ := table.At(i)
		prev, dup := seen[k]
		require.False(t, dup, "move %s at both %d and %d", k.UCI(), prev, i)
		seen[k] = i
	}
}

// Every legal move from every position of a randomly played game must be
// mapped, including promotions and castling.
func TestMoveTableCoversPlayedGames(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for g := 0; g < 5; g++ {
		state := NewState()
		for ply := 0; ply < 120; ply++ {
			if ended, _ := state.Terminal(); ended {
				break
			}
			legal := state.LegalMoves()
			if len(legal) == 0 {
				break
			}
			for _, m := range legal {
				_, ok := Moves().Index(KeyOf(m))
				assert.True(t, ok, "unmapped legal move %s", KeyOf(m).UCI())
			}
			state = state.Apply(legal[rng.Intn(len(legal))])
		}
	}
}

func TestMoveTablePromotions(t *testing.T) {
	table := Moves()
	base, ok := table.Index(MoveKey{From: chess.E7, To: chess.E8})
	require.True(t, ok)

	// promotion variants directly follow the plain move, knight first
	order := []chess.PieceType{chess.Knight, chess.Bishop, chess.Rook, chess.Queen}
	for i, p := range order {
		idx, ok := table.Index(MoveKey{From: chess.E7, To: chess.E8, Promo: p})
		require.True(t, ok)
		assert.Equal(t, base+1+i, idx)
	}
}

func TestMoveKeyUCI(t *testing.T) {
	assert.Equal(t, "e2e4", MoveKey{From: chess.E2, To: chess.E4}.UCI())
	assert.Equal(t, "a7a8q", MoveKey{From: chess.A7, To: chess.A8, Promo: chess.Queen}.UCI())
}
