package domain

// Match data opcodes shared by the transport adapter and clients.
const (
	OpCodeStartGame    int64 = 1
	OpCodeSubmitIntent int64 = 2
	OpCodeSnapshot     int64 = 100 // Server -> Client
	OpCodeLobby        int64 = 101 // Server -> Client, seat changes before the game starts
	OpCodeError        int64 = 110 // Server -> sender only
)

// Error codes carried by OpCodeError payloads.
const (
	ErrorCodeIllegalIntent  = 1
	ErrorCodeNotParticipant = 2
	ErrorCodeMatchOver      = 3
	ErrorCodeBadRequest     = 4
)
