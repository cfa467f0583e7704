package nakama

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/app"
	"tabletop/internal/bot"
	"tabletop/internal/domain"
	"tabletop/internal/ports"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode  int64
	data    []byte
	targets []runtime.Presence
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	messages     []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.messages = append(md.messages, sentMessage{opCode: opCode, data: append([]byte(nil), data...), targets: presences})
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) last(opCode int64) (sentMessage, bool) {
	for i := len(md.messages) - 1; i >= 0; i-- {
		if md.messages[i].opCode == opCode {
			return md.messages[i], true
		}
	}
	return sentMessage{}, false
}

type mockPresence struct {
	userID string
}

func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return "name-" + p.userID }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p mockPresence) GetUserId() string                 { return p.userID }
func (p mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p mockPresence) GetNodeId() string                 { return "node" }

type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m mockMatchData) GetOpCode() int64      { return m.opCode }
func (m mockMatchData) GetData() []byte       { return m.data }
func (m mockMatchData) GetReliable() bool     { return true }
func (m mockMatchData) GetReceiveTime() int64 { return 0 }

// mockNakama overrides the module calls the adapter makes. Anything else panics on the nil embed.
type mockNakama struct {
	runtime.NakamaModule
	writes      []*runtime.StorageWrite
	listed      []*api.Match
	lastQuery   string
	created     map[string]interface{}
	signalReply string
}

func (m *mockNakama) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	m.writes = append(m.writes, writes...)
	return nil, nil
}

func (m *mockNakama) MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error) {
	m.lastQuery = query
	return m.listed, nil
}

func (m *mockNakama) MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error) {
	m.created = params
	return "created-" + module, nil
}

func (m *mockNakama) MatchSignal(ctx context.Context, id string, data string) (string, error) {
	return m.signalReply, nil
}

func init() {
	// Load bot identities for testing.
	if err := bot.LoadIdentities("test_bot_identities.json"); err != nil {
		panic("Failed to load bot identities for tests: " + err.Error())
	}
}

type harness struct {
	handler    *matchHandler
	dispatcher *mockDispatcher
	nk         *mockNakama
	state      *MatchState
	tick       int64
}

func newHarness(t *testing.T, params map[string]interface{}) *harness {
	t.Helper()
	h := &harness{handler: newMatchHandler(nil), dispatcher: &mockDispatcher{}, nk: &mockNakama{}}
	state, rate, label := h.handler.MatchInit(context.Background(), noopLogger{}, nil, h.nk, params)
	if rate != tickRate || label == "" {
		t.Fatalf("MatchInit returned rate=%d label=%q", rate, label)
	}
	h.state = state.(*MatchState)
	return h
}

func (h *harness) join(t *testing.T, userID string) {
	t.Helper()
	p := mockPresence{userID: userID}
	_, ok, reason := h.handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, p, nil)
	if !ok {
		t.Fatalf("join %s rejected: %s", userID, reason)
	}
	h.handler.MatchJoin(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, []runtime.Presence{p})
}

func (h *harness) loop(msgs ...runtime.MatchData) interface{} {
	h.tick++
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_MATCH_ID, "match-1")
	return h.handler.MatchLoop(ctx, noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, msgs)
}

func send(userID string, opCode int64, payload string) mockMatchData {
	return mockMatchData{mockPresence: mockPresence{userID: userID}, opCode: opCode, data: []byte(payload)}
}

func TestFindFirstHumanSeat(t *testing.T) {
	scripted := bot.GetIdentity(0).Scripted()

	tests := []struct {
		name  string
		seats []domain.Participant
		want  int
	}{
		{name: "FirstHumanAfterBot", seats: []domain.Participant{scripted, domain.Human{UserID: "user-1"}, nil, nil}, want: 1},
		{name: "AllBots", seats: []domain.Participant{scripted, nil}, want: -1},
		{name: "AllEmpty", seats: []domain.Participant{nil, nil, nil, nil}, want: -1},
		{name: "FirstHumanIsSeatZero", seats: []domain.Participant{domain.Human{UserID: "user-1"}, scripted}, want: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := findFirstHumanSeat(test.seats); got != test.want {
				t.Fatalf("findFirstHumanSeat() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestEncodeLabel(t *testing.T) {
	tests := []struct {
		name  string
		label domain.LabelPayload
	}{
		{name: "LobbyState", label: domain.LabelPayload{Open: true, Game: "chess", Phase: "lobby"}},
		{name: "PlayingState", label: domain.LabelPayload{Open: false, Game: "carrom", Phase: "playing"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			encoded, err := encodeLabel(test.label)
			if err != nil {
				t.Fatalf("Failed to encode label: %v", err)
			}
			// protojson whitespace is unstable, so compare decoded values.
			var got domain.LabelPayload
			if err := json.Unmarshal([]byte(encoded), &got); err != nil {
				t.Fatalf("Label %q is not JSON: %v", encoded, err)
			}
			if got != test.label {
				t.Errorf("Got %+v, want %+v", got, test.label)
			}
		})
	}
}

func TestMatchInitResolvesParams(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "carrom", "seats": 2, "time_control": float64(300)})
	if h.state.Kind != domain.KindCarrom || len(h.state.Seats) != 2 {
		t.Fatalf("unexpected lobby: kind=%s seats=%d", h.state.Kind, len(h.state.Seats))
	}
	if h.state.TurnBudget.Seconds() != 300 {
		t.Fatalf("TurnBudget = %v, want 5m", h.state.TurnBudget)
	}

	h = newHarness(t, map[string]interface{}{"game": "go", "seats": 9})
	if h.state.Kind != domain.KindChess || len(h.state.Seats) != 2 {
		t.Fatalf("bad params should fall back to a chess lobby, got %s with %d seats", h.state.Kind, len(h.state.Seats))
	}
}

func TestProcessBots_FillsLobbyForSoloHuman(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "four-chess"})
	h.state.BotsEnabled = true
	h.state.BotAutoFillDelay = 1
	h.join(t, "user-1")

	if h.state.OwnerSeat != 0 {
		t.Fatalf("OwnerSeat = %d, want 0", h.state.OwnerSeat)
	}

	for i := 0; i < tickRate+1; i++ {
		h.loop()
	}

	if h.state.OpenSeats() != 0 {
		t.Fatalf("expected lobby to be filled, %d seats open", h.state.OpenSeats())
	}
	seen := map[string]bool{}
	for _, p := range h.state.Seats[1:] {
		if !domain.IsScripted(p) {
			t.Fatalf("expected a bot, got %#v", p)
		}
		if seen[p.Identity()] {
			t.Fatalf("bot %s seated twice", p.Identity())
		}
		seen[p.Identity()] = true
	}
	if h.state.LastSinglePlayerTick != 0 {
		t.Fatalf("Expected auto-fill timer reset, got %d", h.state.LastSinglePlayerTick)
	}
	if h.dispatcher.labelUpdates == 0 {
		t.Fatalf("Expected label update after auto-fill")
	}
	if _, ok := h.dispatcher.last(domain.OpCodeLobby); !ok {
		t.Fatalf("Expected lobby broadcast after auto-fill")
	}

	// A second human takes over a bot seat while the lobby is open.
	h.join(t, "user-2")
	if seat := domain.SeatOf(h.state.Seats, "user-2"); seat != 1 {
		t.Fatalf("user-2 seated at %d, want 1", seat)
	}
}

func TestStartGameAndSubmitIntent(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "chess"})
	h.join(t, "user-1")
	h.join(t, "user-2")

	h.loop(send("user-2", domain.OpCodeStartGame, ""))
	if h.state.Match != nil {
		t.Fatalf("only the owner may start the match")
	}
	if msg, ok := h.dispatcher.last(domain.OpCodeError); !ok || msg.targets[0].GetUserId() != "user-2" {
		t.Fatalf("expected an error for user-2, got %+v", msg)
	}

	h.loop(send("user-1", domain.OpCodeStartGame, ""))
	if h.state.Match == nil || h.state.Phase != domain.PhasePlaying {
		t.Fatalf("match did not start, phase=%s", h.state.Phase)
	}
	if h.state.Match.ID() != "match-1" {
		t.Fatalf("match id = %s, want the Nakama match id", h.state.Match.ID())
	}

	h.loop(send("user-1", domain.OpCodeSubmitIntent, `{"kind":"move","move":{"from":"e2","to":"e4"}}`))
	msg, ok := h.dispatcher.last(domain.OpCodeSnapshot)
	if !ok {
		t.Fatalf("expected a snapshot broadcast")
	}
	var snap app.Snapshot
	if err := json.Unmarshal(msg.data, &snap); err != nil {
		t.Fatalf("snapshot is not JSON: %v", err)
	}
	if snap.Seq != 1 || snap.Turn != 1 || snap.Chess == nil || len(snap.Chess.History) != 1 {
		t.Fatalf("unexpected snapshot after e4: %+v", snap)
	}

	errorsBefore := len(h.dispatcher.messages)
	h.loop(send("user-1", domain.OpCodeSubmitIntent, `{"kind":"move","move":{"from":"d2","to":"d4"}}`))
	msg, ok = h.dispatcher.last(domain.OpCodeError)
	if !ok || len(h.dispatcher.messages) == errorsBefore {
		t.Fatalf("expected an out-of-turn error")
	}
	var payload errorPayload
	if err := json.Unmarshal(msg.data, &payload); err != nil || payload.Code != domain.ErrorCodeNotParticipant {
		t.Fatalf("error payload = %+v (%v), want not-participant", payload, err)
	}
}

func TestMatchSignalReturnsState(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "chess"})
	h.join(t, "user-1")

	_, reply := h.handler.MatchSignal(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, 0, h.state, signalState)
	var lobby LobbyView
	if err := json.Unmarshal([]byte(reply), &lobby); err != nil {
		t.Fatalf("lobby reply is not JSON: %v", err)
	}
	if lobby.Phase != string(domain.PhaseLobby) || lobby.Seats[0].Name != "name-user-1" {
		t.Fatalf("unexpected lobby view: %+v", lobby)
	}

	if _, reply := h.handler.MatchSignal(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, 0, h.state, "other"); reply != "" {
		t.Fatalf("unknown signals should return nothing, got %q", reply)
	}
}

func TestLeaveTerminatesWhenHumansGone(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "chess"})
	h.state.BotsEnabled = true
	h.join(t, "user-1")
	h.loop(send("user-1", domain.OpCodeStartGame, ""))
	if h.state.Match == nil {
		t.Fatalf("match did not start")
	}

	got := h.handler.MatchLeave(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, []runtime.Presence{mockPresence{userID: "user-1"}})
	if got != nil {
		t.Fatalf("expected the match to terminate once the last human left")
	}
	if len(h.nk.writes) != 0 {
		t.Fatalf("dropped matches must not be recorded")
	}
}

func TestLobbyLeaveFreesSeat(t *testing.T) {
	h := newHarness(t, map[string]interface{}{"game": "carrom", "seats": 4})
	h.join(t, "user-1")
	h.join(t, "user-2")

	got := h.handler.MatchLeave(context.Background(), noopLogger{}, nil, h.nk, h.dispatcher, h.tick, h.state, []runtime.Presence{mockPresence{userID: "user-1"}})
	if got == nil {
		t.Fatalf("lobby with a human should stay open")
	}
	if h.state.Seats[0] != nil || h.state.OwnerSeat != 1 {
		t.Fatalf("seat 0 = %#v owner = %d, want freed seat and owner 1", h.state.Seats[0], h.state.OwnerSeat)
	}
}

func TestErrorCode(t *testing.T) {
	tests := map[error]int{
		domain.ErrMatchOver:      domain.ErrorCodeMatchOver,
		app.ErrMatchDropped:      domain.ErrorCodeMatchOver,
		domain.ErrNotParticipant: domain.ErrorCodeNotParticipant,
		domain.ErrIllegalIntent:  domain.ErrorCodeIllegalIntent,
		context.Canceled:         domain.ErrorCodeBadRequest,
	}
	for err, want := range tests {
		if got := errorCode(err); got != want {
			t.Fatalf("errorCode(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestQuickMatch(t *testing.T) {
	nk := &mockNakama{}
	reply, err := rpcQuickMatch(context.Background(), noopLogger{}, nil, nk, `{"game":"four-chess","time_control":0}`)
	if err != nil {
		t.Fatalf("rpcQuickMatch failed: %v", err)
	}
	var resp QuickMatchResponse
	if err := json.Unmarshal([]byte(reply), &resp); err != nil || !resp.IsNew {
		t.Fatalf("expected a new match, got %s (%v)", reply, err)
	}
	if nk.created["game"] != "four-chess" || nk.created["time_control"] != 0 {
		t.Fatalf("unexpected create params: %v", nk.created)
	}
	if nk.lastQuery != lobbyQuery(domain.KindFourChess) {
		t.Fatalf("query = %q", nk.lastQuery)
	}

	nk.listed = []*api.Match{{MatchId: "existing"}}
	reply, err = rpcQuickMatch(context.Background(), noopLogger{}, nil, nk, "")
	if err != nil {
		t.Fatalf("rpcQuickMatch failed: %v", err)
	}
	if err := json.Unmarshal([]byte(reply), &resp); err != nil || resp.IsNew || resp.MatchID != "existing" {
		t.Fatalf("expected the listed lobby, got %s", reply)
	}

	if _, err := rpcQuickMatch(context.Background(), noopLogger{}, nil, nk, `{"game":"go"}`); err == nil {
		t.Fatalf("expected an unknown game error")
	}
}

func TestMatchStateRPC(t *testing.T) {
	nk := &mockNakama{signalReply: `{"seq":3}`}
	reply, err := rpcMatchState(context.Background(), noopLogger{}, nil, nk, `{"match_id":"m"}`)
	if err != nil || reply != `{"seq":3}` {
		t.Fatalf("rpcMatchState = %q, %v", reply, err)
	}
	if _, err := rpcMatchState(context.Background(), noopLogger{}, nil, nk, `{}`); err == nil {
		t.Fatalf("expected a missing match_id error")
	}
}

func TestRecordAdapterWritesPerHuman(t *testing.T) {
	nk := &mockNakama{}
	adapter := NewNakamaRecordAdapter(nk)
	rec := ports.Record{
		ID:   "rec-1",
		Kind: string(domain.KindChess),
		Participants: []ports.RecordSeat{
			{Seat: 0, UserID: "user-1"},
			{Seat: 1, UserID: "bot-ada", Scripted: true},
		},
		Winner: 0,
	}
	if err := adapter.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(nk.writes) != 1 || nk.writes[0].UserID != "user-1" || nk.writes[0].Collection != MatchRecordCollection {
		t.Fatalf("unexpected writes: %+v", nk.writes)
	}

	nk.writes = nil
	rec.Participants[0].Scripted = true
	if err := adapter.Record(context.Background(), rec); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(nk.writes) != 1 || nk.writes[0].UserID != "" {
		t.Fatalf("bot-only match should be system owned: %+v", nk.writes)
	}

	if err := adapter.Record(context.Background(), ports.Record{}); err == nil {
		t.Fatalf("expected an error for a record without id")
	}
}
