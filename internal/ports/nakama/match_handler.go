package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/app"
	"tabletop/internal/bot"
	"tabletop/internal/config"
	"tabletop/internal/domain"
	"tabletop/internal/ports"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Kind                 domain.GameKind             `json:"kind"`
	Phase                domain.Phase                `json:"phase"`
	Seats                []domain.Participant        `json:"-"`                       // nil means the seat is empty
	OwnerSeat            int                         `json:"owner_seat"`              // Seat index of the match owner
	TurnBudget           time.Duration               `json:"turn_budget"`             // Per-seat budget, 0 means untimed
	Tick                 int64                       `json:"tick"`                    // Current tick of the match
	Presences            map[string]runtime.Presence `json:"-"`                       // Map UserId -> Presence for targeted messaging
	Match                *app.Match                  `json:"-"`                       // Running game, nil while in lobby
	BotsEnabled          bool                        `json:"bots_enabled"`            // Whether scripted opponents may fill seats
	BotAutoFillDelay     int                         `json:"bot_auto_fill_delay"`     // Seconds to wait before auto-filling with bots
	LastSinglePlayerTick int64                       `json:"last_single_player_tick"` // Tick when a single player started waiting
	Config               *config.GameConfig          `json:"-"`
}

// OpenSeats returns the number of unbound seats.
func (ms *MatchState) OpenSeats() int {
	count := 0
	for _, p := range ms.Seats {
		if p == nil {
			count++
		}
	}
	return count
}

// LobbyView is broadcast on OpCodeLobby while seats change.
type LobbyView struct {
	Kind         string         `json:"kind"`
	Phase        string         `json:"phase"`
	OwnerSeat    int            `json:"owner_seat"`
	TurnBudgetMs int64          `json:"turn_budget_ms"`
	Seats        []app.SeatView `json:"seats"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []domain.Participant) int {
	for i, p := range seats {
		if _, ok := p.(domain.Human); ok {
			return i
		}
	}
	return -1
}

// findScriptedSeat returns the first seat a joining human may take over, or -1.
func findScriptedSeat(seats []domain.Participant) int {
	for i, p := range seats {
		if domain.IsScripted(p) {
			return i
		}
	}
	return -1
}

// intParam reads a numeric match parameter; MatchCreate keeps Go ints while JSON decoding yields float64.
func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

type matchHandler struct {
	oracle ports.MoveOracle
}

func newMatchHandler(oracle ports.MoveOracle) *matchHandler {
	return &matchHandler{oracle: oracle}
}

// MatchInit is called when the match is created. Params: game, time_control (seconds, -1 for default), seats.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	cfg := config.GetGameConfig()

	kind := domain.KindChess
	if name, ok := params["game"].(string); ok {
		if k, ok := domain.ParseGameKind(name); ok {
			kind = k
		} else {
			logger.Warn("MatchInit: Unknown game %q, defaulting to %s.", name, kind)
		}
	}
	lo, hi := kind.SeatRange()
	seats := intParam(params, "seats", hi)
	if seats < lo || seats > hi {
		seats = hi
	}

	state := &MatchState{
		Kind:             kind,
		Phase:            domain.PhaseLobby,
		Seats:            make([]domain.Participant, seats),
		OwnerSeat:        -1,
		TurnBudget:       cfg.TurnBudget(kind, intParam(params, "time_control", -1)),
		Presences:        make(map[string]runtime.Presence),
		BotsEnabled:      cfg.BotsEnabled,
		BotAutoFillDelay: cfg.BotAutoFillDelaySeconds,
		Config:           cfg,
	}

	label, err := encodeLabel(domain.ComputeLabel(state.Kind, state.Phase, state.Seats))
	if err != nil {
		logger.Error("MatchInit: %v", err)
		return nil, 0, ""
	}

	logger.Debug("MatchInit: %s lobby with %d seats, budget %v.", kind, seats, state.TurnBudget)
	return state, tickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always reconnect.
	if domain.SeatOf(matchState.Seats, presence.GetUserId()) >= 0 {
		return state, true, ""
	}
	if matchState.Phase != domain.PhaseLobby {
		return state, false, "Match already started"
	}
	if matchState.OpenSeats() == 0 && findScriptedSeat(matchState.Seats) < 0 {
		return state, false, "Match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if domain.SeatOf(matchState.Seats, userID) >= 0 || matchState.Phase != domain.PhaseLobby {
			continue
		}

		seat := domain.LowestAvailableSeat(matchState.Seats)
		if seat < 0 {
			seat = findScriptedSeat(matchState.Seats)
			if seat >= 0 {
				logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", matchState.Seats[seat].Identity(), userID, seat)
			}
		}
		if seat < 0 {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
			continue
		}
		matchState.Seats[seat] = domain.Human{UserID: userID}
	}

	if owner := matchState.OwnerSeat; owner < 0 || owner >= len(matchState.Seats) || domain.IsScripted(matchState.Seats[owner]) || matchState.Seats[owner] == nil {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
		if matchState.OwnerSeat >= 0 {
			logger.Debug("MatchJoin: Owner set to human seat %d.", matchState.OwnerSeat)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	if matchState.Match != nil {
		// Reconnecting players need the position right away.
		mh.broadcastSnapshot(matchState.Match.State(), dispatcher, logger)
	} else {
		mh.broadcastLobby(matchState, dispatcher, logger)
	}
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		if matchState.Match != nil {
			if matchState.Match.Leave(userID) {
				logger.Info("MatchLeave: Every human left, dropping match.")
				return nil
			}
			continue
		}

		if seat := domain.SeatOf(matchState.Seats, userID); seat >= 0 {
			matchState.Seats[seat] = nil
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
		}
	}

	if matchState.Match == nil {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
		if matchState.OwnerSeat < 0 {
			logger.Info("MatchLeave: Terminating lobby with no humans.")
			return nil
		}
		mh.updateLabel(matchState, dispatcher, logger)
		mh.broadcastLobby(matchState, dispatcher, logger)
	}
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case domain.OpCodeStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, nk, msg)
		case domain.OpCodeSubmitIntent:
			mh.handleSubmitIntent(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(matchState, dispatcher, logger)
	}

	if matchState.Match != nil && matchState.Phase == domain.PhasePlaying {
		for _, ev := range matchState.Match.Tick(ctx) {
			mh.broadcastEvent(matchState, dispatcher, logger, ev)
		}
	}

	return matchState
}

// processBots fills a lobby that has waited with a single human for the auto-fill delay.
func (mh *matchHandler) processBots(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Phase != domain.PhaseLobby || domain.CountHumans(state.Seats) != 1 {
		state.LastSinglePlayerTick = 0
		return
	}
	if state.OpenSeats() == 0 {
		return
	}
	if state.LastSinglePlayerTick == 0 {
		state.LastSinglePlayerTick = state.Tick
		logger.Debug("processBots: Single player detected, starting auto-fill timer.")
	}
	if state.Tick-state.LastSinglePlayerTick < int64(state.BotAutoFillDelay*tickRate) {
		return
	}

	if mh.fillWithBots(state, logger) {
		mh.updateLabel(state, dispatcher, logger)
		mh.broadcastLobby(state, dispatcher, logger)
	}
	state.LastSinglePlayerTick = 0
}

// fillWithBots binds every empty seat to a scripted identity.
func (mh *matchHandler) fillWithBots(state *MatchState, logger runtime.Logger) bool {
	added := false
	for i, p := range state.Seats {
		if p != nil {
			continue
		}
		scripted := pickBot(state.Seats, i)
		state.Seats[i] = scripted
		logger.Info("processBots: Added bot %s (%s) to seat %d", scripted.Name, scripted.BotID, i)
		added = true
	}
	return added
}

// pickBot returns the first identity from index onward that is not already seated.
func pickBot(seats []domain.Participant, index int) domain.Scripted {
	for offset := 0; offset < len(seats); offset++ {
		candidate := bot.GetIdentity(index + offset).Scripted()
		if domain.SeatOf(seats, candidate.BotID) < 0 {
			return candidate
		}
	}
	return bot.GetIdentity(index).Scripted()
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, nk runtime.NakamaModule, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := domain.SeatOf(state.Seats, senderID)

	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d)", senderID, senderSeat, state.OwnerSeat)

	if state.Phase != domain.PhaseLobby {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCodeBadRequest, "match already started")
		return
	}
	if senderSeat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCodeBadRequest, "only the owner can start the match")
		return
	}
	if state.BotsEnabled {
		mh.fillWithBots(state, logger)
	}
	if open := state.OpenSeats(); open > 0 {
		logger.Warn("StartGame: Cannot start with %d open seats.", open)
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCodeBadRequest, "not enough players")
		return
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	m, err := app.NewMatch(app.MatchConfig{
		ID:         matchID,
		Kind:       state.Kind,
		Seats:      state.Seats,
		TurnBudget: state.TurnBudget,
		MaxPlies:   state.Config.MaxPlies,
		Carrom:     state.Config.Carrom,
	}, app.Deps{
		Logger:   logger,
		Recorder: NewNakamaRecordAdapter(nk),
		Bots:     bot.Deps{Oracle: mh.oracle},
	})
	if err != nil {
		logger.Error("StartGame: Failed to start game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCodeBadRequest, err.Error())
		return
	}

	state.Match = m
	state.Phase = domain.PhasePlaying
	mh.updateLabel(state, dispatcher, logger)

	for _, ev := range m.Start(ctx) {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	logger.Info("StartGame: %s started with %d seats.", state.Kind, len(state.Seats))
}

func (mh *matchHandler) handleSubmitIntent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, senderID, domain.ErrorCodeBadRequest, "match has not started")
		return
	}

	intent, err := domain.DecodeIntent(msg.GetData())
	if err != nil {
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
		return
	}

	events, err := state.Match.Submit(ctx, senderID, intent)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Debug("SubmitIntent: Rejected %s from %s: %v", intent, senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, errorCode(err), err.Error())
	}
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrMatchOver), errors.Is(err, app.ErrMatchDropped):
		return domain.ErrorCodeMatchOver
	case errors.Is(err, domain.ErrNotParticipant):
		return domain.ErrorCodeNotParticipant
	case errors.Is(err, domain.ErrIllegalIntent):
		return domain.ErrorCodeIllegalIntent
	}
	return domain.ErrorCodeBadRequest
}

func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	mh.broadcastSnapshot(ev.Snapshot, dispatcher, logger)
	if ev.Terminal() && state.Phase != domain.PhaseEnded {
		state.Phase = domain.PhaseEnded
		mh.updateLabel(state, dispatcher, logger)
		logger.Info("Match ended: winner=%d reason=%s", ev.Snapshot.Winner, ev.Snapshot.Reason)
	}
}

func (mh *matchHandler) broadcastSnapshot(snap app.Snapshot, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	bytes, err := snap.Encode()
	if err != nil {
		logger.Error("Failed to marshal snapshot: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(domain.OpCodeSnapshot, bytes, nil, nil, true); err != nil {
		logger.Error("Failed to broadcast snapshot: %v", err)
	}
}

func (mh *matchHandler) lobbyView(state *MatchState) LobbyView {
	view := LobbyView{
		Kind:         string(state.Kind),
		Phase:        string(state.Phase),
		OwnerSeat:    state.OwnerSeat,
		TurnBudgetMs: state.TurnBudget.Milliseconds(),
	}
	for i, p := range state.Seats {
		seat := app.SeatView{Seat: i}
		switch v := p.(type) {
		case domain.Human:
			seat.UserID = v.UserID
			if presence, ok := state.Presences[v.UserID]; ok {
				seat.Name = presence.GetUsername()
			}
		case domain.Scripted:
			seat.UserID = v.BotID
			seat.Name = v.Name
			seat.Scripted = true
		}
		view.Seats = append(view.Seats, seat)
	}
	return view
}

func (mh *matchHandler) broadcastLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	bytes, err := json.Marshal(mh.lobbyView(state))
	if err != nil {
		logger.Error("Failed to marshal lobby: %v", err)
		return
	}
	dispatcher.BroadcastMessage(domain.OpCodeLobby, bytes, nil, nil, true)
}

// sendError sends an error payload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	bytes, err := json.Marshal(errorPayload{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	dispatcher.BroadcastMessage(domain.OpCodeError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := encodeLabel(domain.ComputeLabel(state.Kind, state.Phase, state.Seats))
	if err != nil {
		logger.Error("UpdateLabel: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated, grace %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok && matchState.Match != nil && !matchState.Match.Done() {
		matchState.Match.Drop("server shutdown")
	}
	return state
}

// MatchSignal answers signalState with the current snapshot, or the lobby view before the game starts.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != signalState {
		return state, ""
	}

	var (
		bytes []byte
		err   error
	)
	if matchState.Match != nil {
		bytes, err = matchState.Match.State().Encode()
	} else {
		bytes, err = json.Marshal(mh.lobbyView(matchState))
	}
	if err != nil {
		logger.Error("MatchSignal: Failed to marshal state: %v", err)
		return state, ""
	}
	return state, string(bytes)
}
