package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby for a game kind.
	RpcQuickMatch = "quick_match"
	// RpcMatchState returns the current snapshot of a match.
	RpcMatchState = "match_state"

	// MatchNameTabletop is the authoritative match handler name registered with Nakama.
	MatchNameTabletop = "tabletop_match"

	// MatchRecordCollection is the storage collection finished match records are written to.
	MatchRecordCollection = "match_records"

	// tickRate is the number of MatchLoop calls per second. The match clock reads wall time,
	// so this only bounds how late a timeout is noticed.
	tickRate = 5

	// signalState asks MatchSignal for the current snapshot.
	signalState = "state"

	// defaultGameConfigPath is relative to the Nakama working directory.
	defaultGameConfigPath = "data/game_config.json"
)
