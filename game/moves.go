package game

import (
	"github.com/notnil/chess"
)

// MoveKey identifies a chess move independently of any particular position:
// origin square, destination square and an optional promotion piece kind.
// It is comparable, so it can key maps and be tested for exact equality.
type MoveKey struct {
	From  chess.Square
	To    chess.Square
	Promo chess.PieceType
}

// KeyOf derives the MoveKey for a move produced by move generation.
func KeyOf(m *chess.Move) MoveKey {
	return MoveKey{From: m.S1(), To: m.S2(), Promo: m.Promo()}
}

var promoChar = map[chess.PieceType]string{
	chess.Knight: "n",
	chess.Bishop: "b",
	chess.Rook:   "r",
	chess.Queen:  "q",
}

// UCI renders the key in UCI notation, e.g. "e2e4" or "e7e8q".
func (k MoveKey) UCI() string {
	return k.From.String() + k.To.String() + promoChar[k.Promo]
}

// MoveTable is the fixed, total bijection between moves and dense policy
// indices. It is built once by a pure function of the rules alone, so every
// process that constructs it (workers, evaluators, an external training
// loop) agrees on the same enumeration without coordination.
type MoveTable struct {
	byIndex []MoveKey
	byMove  map[MoveKey]int
}

var moveTable = buildMoveTable()

// Moves returns the process-wide move table.
func Moves() *MoveTable { return moveTable }

// buildMoveTable enumerates every ordered pair of distinct squares in
// canonical A1..H8 order. Destinations on the first or last rank additionally
// get one variant per promotable piece kind, in knight, bishop, rook, queen
// order.
func buildMoveTable() *MoveTable {
	t := &MoveTable{}
	for from := chess.A1; from <= chess.H8; from++ {
		for to := chess.A1; to <= chess.H8; to++ {
			if from == to {
				continue
			}
			t.byIndex = append(t.byIndex, MoveKey{From: from, To: to})
			if to.Rank() == chess.Rank1 || to.Rank() == chess.Rank8 {
				for _, p := range []chess.PieceType{chess.Knight, chess.Bishop, chess.Rook, chess.Queen} {
					t.byIndex = append(t.byIndex, MoveKey{From: from, To: to, Promo: p})
				}
			}
		}
	}
	t.byMove = make(map[MoveKey]int, len(t.byIndex))
	for i, k := range t.byIndex {
		t.byMove[k] = i
	}
	return t
}

// Size returns the size of the action space.
func (t *MoveTable) Size() int { return len(t.byIndex) }

// Index returns the dense index for a move key.
func (t *MoveTable) Index(k MoveKey) (int, bool) {
	i, ok := t.byMove[k]
	return i, ok
}

// At returns the move key at a dense index.
func (t *MoveTable) At(i int) (MoveKey, bool) {
	if i < 0 || i >= len(t.byIndex) {
		return MoveKey{}, false
	}
	return t.byIndex[i], true
}
