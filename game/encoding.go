package game

import "github.com/notnil/chess"

const (
	RowNum      = 8
	ColNum      = 8
	SquareCount = RowNum * ColNum

	// PlaneCount is the feature width per board: 12 piece/colour occupancy
	// planes, one side-to-move plane, one en passant plane and four castling
	// rights planes.
	PlaneCount = 18
)

var piecePlane = map[chess.PieceType]int{
	chess.Pawn:   0,
	chess.Knight: 1,
	chess.Bishop: 2,
	chess.Rook:   3,
	chess.Queen:  4,
	chess.King:   5,
}

// Encode converts a single position into SquareCount x PlaneCount float32
// features, laid out square-major (square*PlaneCount + plane). Side-to-move
// and castling rights are constant-valued planes; the en passant plane marks
// the target square and is all-zero when there is none. Pure function of the
// position.
func Encode(pos *chess.Position) []float32 {
	enc := make([]float32, SquareCount*PlaneCount)
	for sq, p := range pos.Board().SquareMap() {
		if p == chess.NoPiece {
			continue
		}
		plane := piecePlane[p.Type()]
		if p.Color() == chess.Black {
			plane += 6
		}
		enc[int(sq)*PlaneCount+plane] = 1
	}
	if pos.Turn() == chess.White {
		fillPlane(enc, 12)
	}
	if ep := pos.EnPassantSquare(); ep != chess.NoSquare {
		enc[int(ep)*PlaneCount+13] = 1
	}
	rights := pos.CastleRights()
	sides := []struct {
		color chess.Color
		side  chess.Side
	}{
		{chess.White, chess.KingSide},
		{chess.White, chess.QueenSide},
		{chess.Black, chess.KingSide},
		{chess.Black, chess.QueenSide},
	}
	for i, cs := range sides {
		if rights.CanCastle(cs.color, cs.side) {
			fillPlane(enc, 14+i)
		}
	}
	return enc
}

func fillPlane(enc []float32, plane int) {
	for sq := 0; sq < SquareCount; sq++ {
		enc[sq*PlaneCount+plane] = 1
	}
}

// EncodeHistory encodes the last n positions of a game, concatenated along
// the plane axis so each square carries n*PlaneCount features, oldest board
// first. Games shorter than n repeat the earliest position to pad. With n<=1
// this is just Encode on the current position.
func EncodeHistory(s *State, n int) []float32 {
	if n <= 1 {
		return Encode(s.pos)
	}
	boards := s.History(n)
	width := PlaneCount * n
	enc := make([]float32, SquareCount*width)
	for b, pos := range boards {
		single := Encode(pos)
		for sq := 0; sq < SquareCount; sq++ {
			copy(enc[sq*width+b*PlaneCount:], single[sq*PlaneCount:(sq+1)*PlaneCount])
		}
	}
	return enc
}
