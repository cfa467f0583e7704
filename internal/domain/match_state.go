package domain

// Participant is the binding of a seat: either a human identity or a scripted opponent.
// The set of implementations is closed to Human and Scripted.
type Participant interface {
	// Identity is the user ID the participant acts under.
	Identity() string
	isParticipant()
}

// Human is a seat bound to an authenticated user.
type Human struct {
	UserID string
}

// Scripted is a seat played by an opponent policy.
type Scripted struct {
	BotID string
	Name  string
	Level int
}

func (h Human) Identity() string    { return h.UserID }
func (s Scripted) Identity() string { return s.BotID }

func (Human) isParticipant()    {}
func (Scripted) isParticipant() {}

// IsScripted reports whether p is played by an opponent policy.
func IsScripted(p Participant) bool {
	_, ok := p.(Scripted)
	return ok
}

// SeatOf returns the seat bound to userID or -1.
func SeatOf(seats []Participant, userID string) int {
	if userID == "" {
		return -1
	}
	for i, p := range seats {
		if p != nil && p.Identity() == userID {
			return i
		}
	}
	return -1
}

// CountHumans returns the number of seats bound to humans.
func CountHumans(seats []Participant) int {
	n := 0
	for _, p := range seats {
		if _, ok := p.(Human); ok {
			n++
		}
	}
	return n
}
