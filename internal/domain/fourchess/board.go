// Package fourchess implements the four-player rotated-board chess variant.
//
// The board is a 14×14 grid with 3×3 corners cut out. Every call returns a new
// State value; the Board is an array so copies never alias.
package fourchess

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Size is the board edge length.
	Size = 14
	// Seats is the number of armies.
	Seats = 4
	corner = 3
)

// PieceType is the kind of a piece. NoPiece marks an empty cell.
type PieceType int

const (
	NoPiece PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceLetters = [...]string{"", "P", "N", "B", "R", "Q", "K"}

func (t PieceType) String() string {
	if t < 0 || int(t) >= len(pieceLetters) {
		return "?"
	}
	return pieceLetters[t]
}

// Piece is an occupant of a cell.
type Piece struct {
	Type  PieceType `json:"type"`
	Owner int       `json:"owner"`
	Moved bool      `json:"moved"`
}

// Cell is one board square. Off-board cells never hold a piece.
type Cell struct {
	Off   bool  `json:"off,omitempty"`
	Piece Piece `json:"piece"`
}

// Empty reports whether the cell is on the board and unoccupied.
func (c Cell) Empty() bool { return !c.Off && c.Piece.Type == NoPiece }

// Board is the full grid indexed [row][col].
type Board [Size][Size]Cell

// Square addresses a cell.
type Square struct {
	Row int `json:"r"`
	Col int `json:"c"`
}

func (s Square) String() string { return strconv.Itoa(s.Row) + "," + strconv.Itoa(s.Col) }

// ParseSquare parses the "r,c" form produced by Square.String.
func ParseSquare(s string) (Square, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Square{}, fmt.Errorf("square %q: want r,c", s)
	}
	r, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Square{}, fmt.Errorf("square %q: %w", s, err)
	}
	c, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Square{}, fmt.Errorf("square %q: %w", s, err)
	}
	return Square{Row: r, Col: c}, nil
}

// InBounds reports whether sq lies inside the 14×14 grid.
func InBounds(sq Square) bool {
	return sq.Row >= 0 && sq.Row < Size && sq.Col >= 0 && sq.Col < Size
}

// IsCutout reports whether sq is one of the corner cut-outs.
func IsCutout(sq Square) bool {
	lowR, highR := sq.Row < corner, sq.Row >= Size-corner
	lowC, highC := sq.Col < corner, sq.Col >= Size-corner
	return (lowR || highR) && (lowC || highC)
}

// Playable reports whether sq is a real board cell.
func Playable(sq Square) bool { return InBounds(sq) && !IsCutout(sq) }

// At returns the cell at sq. Squares outside the grid read as off-board.
func (b *Board) At(sq Square) Cell {
	if !InBounds(sq) {
		return Cell{Off: true}
	}
	return b[sq.Row][sq.Col]
}

func (b *Board) set(sq Square, p Piece) { b[sq.Row][sq.Col].Piece = p }

func (b *Board) clear(sq Square) { b[sq.Row][sq.Col].Piece = Piece{} }

// forward is the pawn advance vector per seat: bottom, left, top, right.
var forward = [Seats]Square{
	{Row: -1, Col: 0},
	{Row: 0, Col: 1},
	{Row: 1, Col: 0},
	{Row: 0, Col: -1},
}

// Forward returns the advance direction of seat's pawns.
func Forward(seat int) Square { return forward[seat] }

var backRank = [8]PieceType{Rook, Knight, Bishop, King, Queen, Bishop, Knight, Rook}

// NewBoard returns the starting position.
func NewBoard() Board {
	var b Board
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			b[r][c].Off = IsCutout(Square{Row: r, Col: c})
		}
	}
	for i, t := range backRank {
		line := corner + i
		// seat 0: bottom
		b[13][line].Piece = Piece{Type: t, Owner: 0}
		b[12][line].Piece = Piece{Type: Pawn, Owner: 0}
		// seat 1: left
		b[line][0].Piece = Piece{Type: t, Owner: 1}
		b[line][1].Piece = Piece{Type: Pawn, Owner: 1}
		// seat 2: top
		b[0][line].Piece = Piece{Type: t, Owner: 2}
		b[1][line].Piece = Piece{Type: Pawn, Owner: 2}
		// seat 3: right
		b[line][13].Piece = Piece{Type: t, Owner: 3}
		b[line][12].Piece = Piece{Type: Pawn, Owner: 3}
	}
	return b
}

// promotes reports whether a pawn of seat standing on sq has reached the far edge.
func promotes(seat int, sq Square) bool {
	switch seat {
	case 0:
		return sq.Row == 0
	case 1:
		return sq.Col == Size-1
	case 2:
		return sq.Row == Size-1
	default:
		return sq.Col == 0
	}
}
