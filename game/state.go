package game

import (
	"strconv"
	"strings"

	"github.com/notnil/chess"
	"github.com/pkg/errors"
)

// State is one full game state: the current position plus enough history to
// detect repetition draws and feed history-aware encodings. A State is never
// mutated in place; Apply returns a fresh copy, so tree nodes branching from
// the same parent cannot observe each other's moves.
type State struct {
	pos      *chess.Position
	history  []*chess.Position // positions before pos, oldest first
	seen     map[string]int    // repetition key -> occurrence count, pos included
	halfmove int               // plies since the last capture or pawn move
}

// repetitionKey identifies a position for threefold-repetition counting:
// placement, side to move, castling rights and en passant target. The move
// counters must not participate, or a repeated position would never match.
func repetitionKey(pos *chess.Position) string {
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return pos.String()
	}
	return strings.Join(fields[:4], " ")
}

// NewState returns the standard initial position.
func NewState() *State {
	pos := chess.StartingPosition()
	return &State{
		pos:  pos,
		seen: map[string]int{repetitionKey(pos): 1},
	}
}

// StateFromFEN builds a State with no prior history from a FEN string. The
// FEN's halfmove clock is honoured; repetition counting starts fresh.
func StateFromFEN(fen string) (*State, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, errors.WithMessagef(err, "parse fen %q", fen)
	}
	pos := chess.NewGame(opt).Position()
	halfmove := 0
	if fields := strings.Fields(fen); len(fields) >= 5 {
		if n, err := strconv.Atoi(fields[4]); err == nil {
			halfmove = n
		}
	}
	return &State{
		pos:      pos,
		seen:     map[string]int{repetitionKey(pos): 1},
		halfmove: halfmove,
	}, nil
}

// Position returns the current position.
func (s *State) Position() *chess.Position { return s.pos }

// Turn returns the side to move.
func (s *State) Turn() chess.Color { return s.pos.Turn() }

// Ply returns the number of half-moves played so far.
func (s *State) Ply() int { return len(s.history) }

// LegalMoves enumerates the legal moves in the generator's fixed order. That
// order is what breaks ties during search, so it must not be shuffled.
func (s *State) LegalMoves() []*chess.Move { return s.pos.ValidMoves() }

// Apply plays a move and returns the resulting State. The receiver is left
// untouched; history and repetition bookkeeping are copied, not shared.
func (s *State) Apply(m *chess.Move) *State {
	board := s.pos.Board()
	pawnMove := board.Piece(m.S1()).Type() == chess.Pawn
	capture := m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant)

	next := &State{
		pos:      s.pos.Update(m),
		history:  make([]*chess.Position, len(s.history), len(s.history)+1),
		seen:     make(map[string]int, len(s.seen)+1),
		halfmove: s.halfmove + 1,
	}
	copy(next.history, s.history)
	next.history = append(next.history, s.pos)
	for k, v := range s.seen {
		next.seen[k] = v
	}
	if pawnMove || capture {
		next.halfmove = 0
	}
	next.seen[repetitionKey(next.pos)]++
	return next
}

// Terminal reports whether the game is over and, if so, the exact outcome
// from the perspective of the side to move: -1 when mated, 0 when drawn.
// Draws cover stalemate, the fifty-move rule and threefold repetition.
func (s *State) Terminal() (bool, float32) {
	switch s.pos.Status() {
	case chess.Checkmate:
		return true, -1
	case chess.Stalemate:
		return true, 0
	}
	if s.halfmove >= 100 {
		return true, 0
	}
	if s.seen[repetitionKey(s.pos)] >= 3 {
		return true, 0
	}
	return false, 0
}

// Checkmate reports whether the side to move has been mated.
func (s *State) Checkmate() bool { return s.pos.Status() == chess.Checkmate }

// Result is the finished game's result from White's perspective:
// +1 White won, -1 Black won, 0 otherwise.
func (s *State) Result() float32 {
	if s.pos.Status() == chess.Checkmate {
		if s.pos.Turn() == chess.White {
			return -1
		}
		return 1
	}
	return 0
}

// History returns the last n positions ending with the current one, oldest
// first. When fewer than n positions exist the earliest available one is
// repeated to pad the front.
func (s *State) History(n int) []*chess.Position {
	all := make([]*chess.Position, 0, len(s.history)+1)
	all = append(all, s.history...)
	all = append(all, s.pos)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	for len(all) < n {
		all = append([]*chess.Position{all[0]}, all...)
	}
	return all
}
