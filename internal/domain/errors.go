package domain

import "errors"

var (
	// ErrIllegalIntent covers wrong turn, rule violations, off-board and friendly-fire targets.
	ErrIllegalIntent = errors.New("illegal intent")
	// ErrNotParticipant is returned when the submitter is not bound to the seat on turn.
	ErrNotParticipant = errors.New("not a participant for this turn")
	// ErrMatchOver is returned for intents that arrive after a terminal outcome.
	ErrMatchOver = errors.New("match is over")
	// ErrEngineUnavailable reports a failed best-move oracle. It is recovered locally.
	ErrEngineUnavailable = errors.New("move engine unavailable")
	// ErrSimulationNonconvergence reports a physics sweep that hit its step ceiling.
	ErrSimulationNonconvergence = errors.New("simulation did not converge")
	// ErrUnknownMatch is returned by the registry for unknown match IDs.
	ErrUnknownMatch = errors.New("unknown match")
)
