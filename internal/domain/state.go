package domain

// Phase represents the lifecycle stage of a match.
type Phase string

const (
	// PhaseLobby is the pre-game state where seats are being filled.
	PhaseLobby Phase = "lobby"
	// PhasePlaying is the active state where intents are accepted.
	PhasePlaying Phase = "playing"
	// PhaseEnded is the state after a match reached a terminal outcome.
	PhaseEnded Phase = "ended"
)

// GameKind identifies one of the hosted games.
type GameKind string

const (
	KindChess     GameKind = "chess"
	KindFourChess GameKind = "four-chess"
	KindCarrom    GameKind = "carrom"
)

// ParseGameKind maps a client supplied name onto a GameKind.
func ParseGameKind(s string) (GameKind, bool) {
	switch GameKind(s) {
	case KindChess, KindFourChess, KindCarrom:
		return GameKind(s), true
	}
	return "", false
}

// SeatRange returns the minimum and maximum number of seats a game kind supports.
func (k GameKind) SeatRange() (min, max int) {
	switch k {
	case KindChess:
		return 2, 2
	case KindFourChess:
		return 4, 4
	case KindCarrom:
		return 2, 4
	}
	return 0, 0
}

// Outcome reasons reported with a terminal match.
const (
	ReasonCheckmate            = "checkmate"
	ReasonStalemate            = "stalemate"
	ReasonRepetition           = "repetition"
	ReasonInsufficientMaterial = "insufficient-material"
	ReasonFiftyMove            = "fifty-move"
	ReasonKingCapture          = "king-capture"
	ReasonNoLegalMoves         = "no-legal-moves"
	ReasonBoardCleared         = "board-cleared"
	ReasonTimeout              = "timeout"
	ReasonMoveLimit            = "move-limit"
	ReasonAbandoned            = "abandoned"
)

// NoWinner marks a drawn or undecided outcome.
const NoWinner = -1

// Outcome describes a terminal result. Winner is a seat index or NoWinner for draws.
type Outcome struct {
	Terminal bool
	Winner   int
	Reason   string
}

// Ongoing is the outcome of a match that has not finished.
func Ongoing() Outcome {
	return Outcome{Winner: NoWinner}
}

// Win builds a terminal outcome won by seat.
func Win(seat int, reason string) Outcome {
	return Outcome{Terminal: true, Winner: seat, Reason: reason}
}

// Draw builds a terminal outcome without a winner.
func Draw(reason string) Outcome {
	return Outcome{Terminal: true, Winner: NoWinner, Reason: reason}
}
