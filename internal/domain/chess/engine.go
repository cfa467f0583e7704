// Package chess wraps github.com/notnil/chess as a value-typed rule engine.
//
// A State is immutable: ApplyMove rebuilds the library game from the starting
// position and move history, so a rejected or previewed move can never leak into
// a committed state.
package chess

import (
	"fmt"
	"strings"

	nchess "github.com/notnil/chess"

	"tabletop/internal/domain"
)

// Color is the side to move. It doubles as the seat index (White = seat 0).
type Color int

const (
	White Color = 0
	Black Color = 1
)

func (c Color) String() string {
	if c == White {
		return "w"
	}
	return "b"
}

// Other returns the opposing color.
func (c Color) Other() Color { return 1 - c }

// Move is a coordinate move. An empty Promotion on a promoting move means queen.
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI renders the move in long algebraic notation.
func (m Move) UCI() string { return m.From + m.To + m.Promotion }

// LastMove describes the most recently applied move.
type LastMove struct {
	Move
	SAN     string `json:"san"`
	Capture bool   `json:"capture"`
}

// Result is returned by ApplyMove.
type Result struct {
	State       State
	LastMove    LastMove
	InCheck     bool
	IsCheckmate bool
	IsDraw      bool
	IsTerminal  bool
	Outcome     domain.Outcome
}

// State is a chess position plus the history needed for repetition rules.
type State struct {
	startFEN string
	history  []string
	game     *nchess.Game
}

// NewState returns the standard starting position.
func NewState() State {
	return State{game: nchess.NewGame()}
}

// FromFEN starts from an arbitrary position.
func FromFEN(fen string) (State, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return State{}, fmt.Errorf("parse fen: %w", err)
	}
	g := nchess.NewGame(opt)
	return State{startFEN: fen, game: g}, nil
}

func (s State) lib() *nchess.Game {
	if s.game == nil {
		return nchess.NewGame()
	}
	return s.game
}

// FEN returns the canonical position string.
func (s State) FEN() string { return s.lib().Position().String() }

// Turn returns the color to move.
func (s State) Turn() Color {
	if s.lib().Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// Ply returns the number of moves applied since the starting position.
func (s State) Ply() int { return len(s.history) }

// History returns the applied moves in UCI notation.
func (s State) History() []string { return append([]string(nil), s.history...) }

// InCheck reports whether the side to move is in check.
func (s State) InCheck() bool {
	moves := s.lib().Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// Outcome reports the terminal state of the position.
func (s State) Outcome() domain.Outcome {
	return outcomeOf(s.lib())
}

// LegalMoves lists every legal move for the side to move. Promotions are listed per piece.
func (s State) LegalMoves() []Move {
	g := s.lib()
	if g.Outcome() != nchess.NoOutcome {
		return nil
	}
	valid := g.ValidMoves()
	out := make([]Move, 0, len(valid))
	for _, mv := range valid {
		out = append(out, fromLib(mv))
	}
	return out
}

// ApplyMove validates and applies mv for color, returning the resulting state.
func (s State) ApplyMove(color Color, mv Move) (Result, error) {
	g := s.lib()
	if g.Outcome() != nchess.NoOutcome {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, domain.ErrMatchOver)
	}
	if color != s.Turn() {
		return Result{}, fmt.Errorf("%w: not %s's turn", domain.ErrIllegalIntent, color)
	}

	target, err := s.find(mv)
	if err != nil {
		return Result{}, err
	}

	next := State{startFEN: s.startFEN, history: s.History(), game: g.Clone()}
	pos := next.game.Position()
	san := nchess.AlgebraicNotation{}.Encode(pos, target)
	uci := nchess.UCINotation{}.Encode(pos, target)
	if err := next.game.Move(target); err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrIllegalIntent, err)
	}
	claimDraws(next.game)
	next.history = append(next.history, uci)

	out := outcomeOf(next.game)
	return Result{
		State: next,
		LastMove: LastMove{
			Move:    fromLib(target),
			SAN:     san,
			Capture: target.HasTag(nchess.Capture) || target.HasTag(nchess.EnPassant),
		},
		InCheck:     target.HasTag(nchess.Check),
		IsCheckmate: next.game.Method() == nchess.Checkmate,
		IsDraw:      next.game.Outcome() == nchess.Draw,
		IsTerminal:  out.Terminal,
		Outcome:     out,
	}, nil
}

// Forfeit ends the game in favour of the opponent of color.
func (s State) Forfeit(color Color, reason string) domain.Outcome {
	return domain.Win(int(color.Other()), reason)
}

// find resolves mv against the legal move list, defaulting promotions to a queen.
func (s State) find(mv Move) (*nchess.Move, error) {
	from := strings.ToLower(strings.TrimSpace(mv.From))
	to := strings.ToLower(strings.TrimSpace(mv.To))
	promo := strings.ToLower(strings.TrimSpace(mv.Promotion))
	if promo == "" {
		promo = "q"
	}

	var plain *nchess.Move
	for _, candidate := range s.lib().ValidMoves() {
		if candidate.S1().String() != from || candidate.S2().String() != to {
			continue
		}
		if candidate.Promo() == nchess.NoPieceType {
			plain = candidate
			continue
		}
		if candidate.Promo().String() == promo {
			return candidate, nil
		}
	}
	if plain != nil {
		return plain, nil
	}
	return nil, fmt.Errorf("%w: %s%s is not legal", domain.ErrIllegalIntent, from, to)
}

// claimDraws takes threefold repetition and the fifty-move rule as soon as they are available.
func claimDraws(g *nchess.Game) {
	if g.Outcome() != nchess.NoOutcome {
		return
	}
	for _, method := range g.EligibleDraws() {
		if method == nchess.ThreefoldRepetition || method == nchess.FiftyMoveRule {
			_ = g.Draw(method)
			return
		}
	}
}

func outcomeOf(g *nchess.Game) domain.Outcome {
	switch g.Outcome() {
	case nchess.WhiteWon:
		return domain.Win(int(White), reasonOf(g.Method()))
	case nchess.BlackWon:
		return domain.Win(int(Black), reasonOf(g.Method()))
	case nchess.Draw:
		return domain.Draw(reasonOf(g.Method()))
	}
	return domain.Ongoing()
}

func reasonOf(m nchess.Method) string {
	switch m {
	case nchess.Checkmate:
		return domain.ReasonCheckmate
	case nchess.Stalemate:
		return domain.ReasonStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return domain.ReasonRepetition
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return domain.ReasonFiftyMove
	case nchess.InsufficientMaterial:
		return domain.ReasonInsufficientMaterial
	}
	return m.String()
}

func fromLib(mv *nchess.Move) Move {
	out := Move{From: mv.S1().String(), To: mv.S2().String()}
	if mv.Promo() != nchess.NoPieceType {
		out.Promotion = mv.Promo().String()
	}
	return out
}
