package fourchess

import (
	"fmt"

	"tabletop/internal/domain"
)

// State is the complete four-player position.
type State struct {
	Board      Board          `json:"board"`
	Turn       int            `json:"turn"`
	Eliminated [Seats]bool    `json:"eliminated"`
	Outcome    domain.Outcome `json:"outcome"`
	Plies      int            `json:"plies"`
}

// Move is a from/to pair. Captured is filled by GenerateMoves and ApplyMove.
type Move struct {
	From     Square    `json:"from"`
	To       Square    `json:"to"`
	Captured PieceType `json:"captured,omitempty"`
}

// MoveResult describes an applied move.
type MoveResult struct {
	Move       Move
	Piece      Piece
	Promoted   bool
	Eliminated int // seat eliminated by this move, -1 if none
}

// NewState returns the starting position with seat 0 to move.
func NewState() State {
	return State{Board: NewBoard(), Turn: 0, Outcome: domain.Ongoing()}
}

// Remaining returns the seats that have not been eliminated.
func (s State) Remaining() []int {
	var out []int
	for seat := 0; seat < Seats; seat++ {
		if !s.Eliminated[seat] {
			out = append(out, seat)
		}
	}
	return out
}

var (
	orthogonal = []Square{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}
	diagonal   = []Square{{Row: -1, Col: -1}, {Row: -1, Col: 1}, {Row: 1, Col: -1}, {Row: 1, Col: 1}}
	allDirs    = append(append([]Square{}, orthogonal...), diagonal...)
	knightJump = []Square{
		{Row: -2, Col: -1}, {Row: -2, Col: 1}, {Row: 2, Col: -1}, {Row: 2, Col: 1},
		{Row: -1, Col: -2}, {Row: -1, Col: 2}, {Row: 1, Col: -2}, {Row: 1, Col: 2},
	}
)

func add(a, b Square) Square { return Square{Row: a.Row + b.Row, Col: a.Col + b.Col} }

// ApplyMove validates and applies a move for seat, returning the next state.
func ApplyMove(s State, seat int, from, to Square) (State, MoveResult, error) {
	if s.Outcome.Terminal {
		return s, MoveResult{}, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, domain.ErrMatchOver)
	}
	if seat < 0 || seat >= Seats || s.Eliminated[seat] {
		return s, MoveResult{}, fmt.Errorf("%w: seat %d cannot move", domain.ErrIllegalIntent, seat)
	}
	if seat != s.Turn {
		return s, MoveResult{}, fmt.Errorf("%w: not seat %d's turn", domain.ErrIllegalIntent, seat)
	}
	if err := legal(&s.Board, seat, from, to); err != nil {
		return s, MoveResult{}, err
	}

	next := s
	piece := next.Board.At(from).Piece
	target := next.Board.At(to).Piece

	res := MoveResult{Move: Move{From: from, To: to, Captured: target.Type}, Eliminated: -1}
	piece.Moved = true
	if piece.Type == Pawn && promotes(seat, to) {
		piece.Type = Queen
		res.Promoted = true
	}
	next.Board.clear(from)
	next.Board.set(to, piece)
	res.Piece = piece
	next.Plies++

	if target.Type == King && !next.Eliminated[target.Owner] {
		next.Eliminated[target.Owner] = true
		res.Eliminated = target.Owner
	}

	next.settle(seat, domain.ReasonKingCapture)
	return next, res, nil
}

// Forfeit eliminates seat without a move, e.g. on timeout.
func Forfeit(s State, seat int, reason string) State {
	if s.Outcome.Terminal || seat < 0 || seat >= Seats || s.Eliminated[seat] {
		return s
	}
	next := s
	next.Eliminated[seat] = true
	if next.Turn == seat {
		next.settle(seat, reason)
	} else {
		next.settle(next.Turn-1, reason)
	}
	return next
}

// settle checks the one-survivor rule and advances the turn pointer past from.
// A seat that comes on turn without any legal move is eliminated in place.
func (s *State) settle(from int, reason string) {
	if from < 0 {
		from += Seats
	}
	for {
		remaining := s.Remaining()
		if len(remaining) == 1 {
			s.Outcome = domain.Win(remaining[0], reason)
			s.Turn = remaining[0]
			return
		}
		if len(remaining) == 0 {
			s.Outcome = domain.Draw(reason)
			return
		}
		s.Turn = domain.NextSeat(from, Seats, func(seat int) bool { return !s.Eliminated[seat] })
		if len(GenerateMoves(*s, s.Turn)) > 0 {
			return
		}
		s.Eliminated[s.Turn] = true
		from = s.Turn
		reason = domain.ReasonNoLegalMoves
	}
}

// legal is the single legality predicate shared by human moves and GenerateMoves.
func legal(b *Board, seat int, from, to Square) error {
	if !Playable(from) {
		return fmt.Errorf("%w: origin %s is off-board", domain.ErrIllegalIntent, from)
	}
	if !Playable(to) {
		return fmt.Errorf("%w: target %s is off-board", domain.ErrIllegalIntent, to)
	}
	if from == to {
		return fmt.Errorf("%w: null move", domain.ErrIllegalIntent)
	}
	piece := b.At(from).Piece
	if piece.Type == NoPiece {
		return fmt.Errorf("%w: no piece on %s", domain.ErrIllegalIntent, from)
	}
	if piece.Owner != seat {
		return fmt.Errorf("%w: piece on %s belongs to seat %d", domain.ErrIllegalIntent, from, piece.Owner)
	}
	target := b.At(to).Piece
	if target.Type != NoPiece && target.Owner == seat {
		return fmt.Errorf("%w: %s holds a friendly piece", domain.ErrIllegalIntent, to)
	}

	dr, dc := to.Row-from.Row, to.Col-from.Col
	ok := false
	switch piece.Type {
	case Knight:
		ok = (abs(dr) == 1 && abs(dc) == 2) || (abs(dr) == 2 && abs(dc) == 1)
	case King:
		ok = abs(dr) <= 1 && abs(dc) <= 1
	case Rook:
		ok = (dr == 0 || dc == 0) && clearPath(b, from, to)
	case Bishop:
		ok = abs(dr) == abs(dc) && clearPath(b, from, to)
	case Queen:
		ok = (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && clearPath(b, from, to)
	case Pawn:
		ok = pawnMove(b, seat, piece, from, to)
	}
	if !ok {
		return fmt.Errorf("%w: %s cannot move %s to %s", domain.ErrIllegalIntent, piece.Type, from, to)
	}
	return nil
}

// clearPath steps from origin towards target and requires every intermediate cell to be empty.
func clearPath(b *Board, from, to Square) bool {
	step := Square{Row: sign(to.Row - from.Row), Col: sign(to.Col - from.Col)}
	for cur := add(from, step); cur != to; cur = add(cur, step) {
		if !b.At(cur).Empty() {
			return false
		}
	}
	return true
}

func pawnMove(b *Board, seat int, piece Piece, from, to Square) bool {
	fwd := forward[seat]
	one := add(from, fwd)
	if to == one {
		return b.At(one).Empty()
	}
	if to == add(one, fwd) {
		return !piece.Moved && b.At(one).Empty() && b.At(to).Empty()
	}
	// Diagonal-forward: one step forward plus one step sideways relative to fwd.
	side := Square{Row: fwd.Col, Col: fwd.Row}
	if to == add(one, side) || to == add(one, Square{Row: -side.Row, Col: -side.Col}) {
		target := b.At(to).Piece
		return target.Type != NoPiece && target.Owner != seat
	}
	return false
}

// GenerateMoves lists every legal move for seat by filtering geometric candidates through legal.
func GenerateMoves(s State, seat int) []Move {
	if s.Outcome.Terminal || seat < 0 || seat >= Seats || s.Eliminated[seat] {
		return nil
	}
	var out []Move
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			from := Square{Row: r, Col: c}
			piece := s.Board.At(from).Piece
			if piece.Type == NoPiece || piece.Owner != seat {
				continue
			}
			for _, to := range candidates(&s.Board, seat, piece, from) {
				if legal(&s.Board, seat, from, to) != nil {
					continue
				}
				out = append(out, Move{From: from, To: to, Captured: s.Board.At(to).Piece.Type})
			}
		}
	}
	return out
}

// candidates produces geometric destinations; legality is decided by legal.
func candidates(b *Board, seat int, piece Piece, from Square) []Square {
	var out []Square
	switch piece.Type {
	case Knight:
		for _, d := range knightJump {
			out = append(out, add(from, d))
		}
	case King:
		for _, d := range allDirs {
			out = append(out, add(from, d))
		}
	case Rook:
		out = rays(b, from, orthogonal)
	case Bishop:
		out = rays(b, from, diagonal)
	case Queen:
		out = rays(b, from, allDirs)
	case Pawn:
		fwd := forward[seat]
		one := add(from, fwd)
		side := Square{Row: fwd.Col, Col: fwd.Row}
		out = append(out, one, add(one, fwd), add(one, side), add(one, Square{Row: -side.Row, Col: -side.Col}))
	}
	return out
}

// rays walks each direction until blocked or off-board, including the blocking cell.
func rays(b *Board, from Square, dirs []Square) []Square {
	var out []Square
	for _, d := range dirs {
		for cur := add(from, d); Playable(cur); cur = add(cur, d) {
			out = append(out, cur)
			if !b.At(cur).Empty() {
				break
			}
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
