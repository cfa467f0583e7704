package domain

// LowestAvailableSeat returns the first unbound seat index or -1 when every seat is taken.
func LowestAvailableSeat(seats []Participant) int {
	for i := 0; i < len(seats); i++ {
		if seats[i] == nil {
			return i
		}
	}
	return -1
}

// LabelPayload holds the values advertised in a match label.
type LabelPayload struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// ComputeLabel derives the advertised label from lobby state.
func ComputeLabel(kind GameKind, phase Phase, seats []Participant) LabelPayload {
	open := phase == PhaseLobby && LowestAvailableSeat(seats) >= 0
	return LabelPayload{Open: open, Game: string(kind), Phase: string(phase)}
}

// NextSeat walks clockwise from seat and returns the first seat accepted by active.
// It returns -1 when no seat qualifies.
func NextSeat(seat, seats int, active func(int) bool) int {
	for step := 1; step <= seats; step++ {
		next := (seat + step) % seats
		if active(next) {
			return next
		}
	}
	return -1
}
