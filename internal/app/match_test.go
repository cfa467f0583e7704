package app

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/bot"
	"tabletop/internal/domain"
	"tabletop/internal/ports"
)

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

type fakeRecorder struct {
	records []ports.Record
}

func (f *fakeRecorder) Record(ctx context.Context, rec ports.Record) error {
	f.records = append(f.records, rec)
	return nil
}

// silentOracle never has a move, forcing the random legal fallback.
type silentOracle struct{}

func (silentOracle) BestMove(context.Context, ports.OracleRequest) (*ports.OracleMove, error) {
	return nil, nil
}

type fixture struct {
	clock    *clock.Mock
	recorder *fakeRecorder
	match    *Match
}

func newFixture(t *testing.T, cfg MatchConfig, seed int64) *fixture {
	t.Helper()
	f := &fixture{clock: clock.NewMock(), recorder: &fakeRecorder{}}
	m, err := NewMatch(cfg, Deps{
		Clock:    f.clock,
		Logger:   noopLogger{},
		Recorder: f.recorder,
		Bots:     bot.Deps{Oracle: silentOracle{}, Rng: rand.New(rand.NewSource(seed))},
	})
	if err != nil {
		t.Fatalf("NewMatch failed: %v", err)
	}
	f.match = m
	return f
}

func humans(ids ...string) []domain.Participant {
	seats := make([]domain.Participant, len(ids))
	for i, id := range ids {
		seats[i] = domain.Human{UserID: id}
	}
	return seats
}

func mustSubmit(t *testing.T, m *Match, userID string, in domain.Intent) []Event {
	t.Helper()
	events, err := m.Submit(context.Background(), userID, in)
	if err != nil {
		t.Fatalf("Submit(%s, %s) failed: %v", userID, in, err)
	}
	return events
}

func TestNewMatchValidation(t *testing.T) {
	tests := []struct {
		name  string
		kind  domain.GameKind
		seats []domain.Participant
	}{
		{name: "empty seat", kind: domain.KindChess, seats: []domain.Participant{domain.Human{UserID: "a"}, nil}},
		{name: "chess with three", kind: domain.KindChess, seats: humans("a", "b", "c")},
		{name: "four chess with two", kind: domain.KindFourChess, seats: humans("a", "b")},
		{name: "carrom with three", kind: domain.KindCarrom, seats: humans("a", "b", "c")},
		{name: "unknown kind", kind: "go", seats: humans("a", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMatch(MatchConfig{Kind: tt.kind, Seats: tt.seats}, Deps{Logger: noopLogger{}}); err == nil {
				t.Fatalf("expected NewMatch to fail")
			}
		})
	}

	if _, err := NewMatch(MatchConfig{Kind: domain.KindChess, Seats: humans("a", "b")}, Deps{}); !errors.Is(err, ErrNoLogger) {
		t.Fatalf("expected ErrNoLogger, got %v", err)
	}
}

func TestMatch_HumanMovesProduceSnapshots(t *testing.T) {
	f := newFixture(t, MatchConfig{ID: "m1", Kind: domain.KindChess, Seats: humans("w", "b")}, 1)

	events := mustSubmit(t, f.match, "w", domain.Move("e2", "e4", ""))
	if len(events) != 1 || events[0].Kind != EventIntentApplied || events[0].Seat != 0 {
		t.Fatalf("unexpected events: %+v", events)
	}
	snap := events[0].Snapshot
	if snap.Turn != 1 || snap.Seq != 1 || snap.Terminal || snap.Chess == nil {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Chess.LastMove == nil || snap.Chess.LastMove.SAN != "e4" {
		t.Fatalf("last move not reported: %+v", snap.Chess.LastMove)
	}
	if len(snap.Clock) != 0 {
		t.Fatalf("untimed match should not report a clock")
	}
}

func TestMatch_RejectsWithoutMutation(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: []domain.Participant{
		domain.Human{UserID: "w"},
		domain.Scripted{BotID: "bot-b", Name: "Bishop", Level: 1},
	}}, 1)
	before := f.match.State()

	tests := []struct {
		name   string
		userID string
		in     domain.Intent
		want   error
	}{
		{name: "stranger", userID: "x", in: domain.Move("e2", "e4", ""), want: domain.ErrNotParticipant},
		{name: "impersonating the bot", userID: "bot-b", in: domain.Move("e7", "e5", ""), want: domain.ErrNotParticipant},
		{name: "illegal geometry", userID: "w", in: domain.Move("e2", "e5", ""), want: domain.ErrIllegalIntent},
		{name: "shot in chess", userID: "w", in: domain.Shoot(0, 10, 400), want: domain.ErrIllegalIntent},
		{name: "malformed intent", userID: "w", in: domain.Intent{Kind: domain.IntentMove}, want: domain.ErrIllegalIntent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := f.match.Submit(context.Background(), tt.userID, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Submit() err = %v, want %v", err, tt.want)
			}
			if len(events) != 0 {
				t.Fatalf("rejected intent produced events: %+v", events)
			}
		})
	}

	if after := f.match.State(); !reflect.DeepEqual(before, after) {
		t.Fatalf("rejections mutated the match")
	}
}

func TestMatch_StateIsIdempotent(t *testing.T) {
	for _, kind := range []domain.GameKind{domain.KindChess, domain.KindFourChess, domain.KindCarrom} {
		t.Run(string(kind), func(t *testing.T) {
			lo, _ := kind.SeatRange()
			seats := humans("a", "b", "c", "d")[:lo]
			f := newFixture(t, MatchConfig{Kind: kind, Seats: seats, TurnBudget: time.Minute}, 1)

			first, err := f.match.State().Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			f.clock.Add(10 * time.Second)
			second, err := f.match.State().Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.Equal(first, second) {
				t.Fatalf("State() is not idempotent:\n%s\n%s", first, second)
			}
		})
	}
}

func TestMatch_TimeoutParityBetweenTickAndMove(t *testing.T) {
	const budget = 10 * time.Second

	setup := func(t *testing.T) *fixture {
		f := newFixture(t, MatchConfig{ID: "timed", Kind: domain.KindChess, Seats: humans("w", "b"), TurnBudget: budget}, 1)
		mustSubmit(t, f.match, "w", domain.Move("e2", "e4", ""))
		f.clock.Add(budget - time.Millisecond)
		if events := f.match.Tick(context.Background()); events != nil {
			t.Fatalf("tick before the budget ran out produced %+v", events)
		}
		f.clock.Add(time.Millisecond)
		return f
	}

	byTick := setup(t)
	tickEvents := byTick.match.Tick(context.Background())

	byMove := setup(t)
	moveEvents, err := byMove.match.Submit(context.Background(), "b", domain.Move("e7", "e5", ""))
	if !errors.Is(err, domain.ErrMatchOver) || !errors.Is(err, domain.ErrIllegalIntent) {
		t.Fatalf("late move err = %v, want ErrMatchOver", err)
	}

	for name, events := range map[string][]Event{"tick": tickEvents, "move": moveEvents} {
		if len(events) != 1 || events[0].Kind != EventClockExpired || events[0].Seat != 1 {
			t.Fatalf("%s: unexpected events %+v", name, events)
		}
		snap := events[0].Snapshot
		if !snap.Terminal || snap.Winner != 0 || snap.Reason != domain.ReasonTimeout {
			t.Fatalf("%s: unexpected outcome %+v", name, snap)
		}
	}
	if !reflect.DeepEqual(tickEvents[0].Snapshot, moveEvents[0].Snapshot) {
		t.Fatalf("tick and move adjudicated differently:\n%+v\n%+v", tickEvents[0].Snapshot, moveEvents[0].Snapshot)
	}

	for name, f := range map[string]*fixture{"tick": byTick, "move": byMove} {
		if len(f.recorder.records) != 1 {
			t.Fatalf("%s: recorder called %d times", name, len(f.recorder.records))
		}
		rec := f.recorder.records[0]
		if rec.Winner != 0 || rec.WinnerID != "w" || rec.Reason != domain.ReasonTimeout || len(rec.Log) != 2 {
			t.Fatalf("%s: unexpected record %+v", name, rec)
		}
		if f.match.Tick(context.Background()) != nil {
			t.Fatalf("%s: tick after the end produced events", name)
		}
	}
}

func TestMatch_ChargesOnlyTheMover(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: humans("w", "b"), TurnBudget: time.Minute}, 1)

	f.clock.Add(30 * time.Second) // before the first move nothing is charged
	mustSubmit(t, f.match, "w", domain.Move("e2", "e4", ""))
	f.clock.Add(20 * time.Second)
	events := mustSubmit(t, f.match, "b", domain.Move("e7", "e5", ""))

	clk := events[0].Snapshot.Clock
	if len(clk) != 2 {
		t.Fatalf("expected two clock entries, got %+v", clk)
	}
	if clk[0].RemainingMs != 60000 || clk[1].RemainingMs != 40000 {
		t.Fatalf("unexpected budgets: %+v", clk)
	}
	if !clk[0].Running || clk[1].Running {
		t.Fatalf("white's clock should be running: %+v", clk)
	}
}

func TestMatch_ScriptedBlackRepliesWithDeadOracle(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: []domain.Participant{
			domain.Human{UserID: "w"},
			domain.Scripted{BotID: "bot-b", Name: "Bishop", Level: 5},
		}}, seed)

		first := mustSubmit(t, f.match, "w", domain.Move("f2", "f3", ""))
		if len(first) != 2 || first[1].Seat != 1 {
			t.Fatalf("seed %d: expected a scripted reply, got %+v", seed, first)
		}
		second := mustSubmit(t, f.match, "w", domain.Move("g2", "g4", ""))
		if len(second) != 2 || second[1].Seat != 1 {
			t.Fatalf("seed %d: expected a scripted reply after g4, got %+v", seed, second)
		}

		snap := f.match.State()
		if len(snap.Chess.History) != 4 {
			t.Fatalf("seed %d: history %v", seed, snap.Chess.History)
		}
		if !snap.Terminal && snap.Turn != 0 {
			t.Fatalf("seed %d: turn should be back with white", seed)
		}
	}
}

func TestMatch_TickResumesInterruptedScriptedSeat(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: []domain.Participant{
		domain.Human{UserID: "w"},
		domain.Scripted{BotID: "bot-b", Name: "Bishop", Level: 5},
	}}, 7)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events, err := f.match.Submit(ctx, "w", domain.Move("e2", "e4", ""))
	if err != nil || len(events) != 1 {
		t.Fatalf("expected only the human move, got %+v (%v)", events, err)
	}
	if f.match.State().Turn != 1 {
		t.Fatalf("scripted black should still be on turn")
	}

	reply := f.match.Tick(context.Background())
	if len(reply) != 1 || reply[0].Kind != EventIntentApplied || reply[0].Seat != 1 {
		t.Fatalf("expected the scripted reply from Tick, got %+v", reply)
	}
	if f.match.State().Turn != 0 {
		t.Fatalf("white should be on turn after the reply")
	}
	if again := f.match.Tick(context.Background()); again != nil {
		t.Fatalf("tick with a human on turn produced %+v", again)
	}
}

func TestMatch_TickWaitsForStart(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: []domain.Participant{
		domain.Scripted{BotID: "bot-w", Name: "Knight", Level: 3},
		domain.Human{UserID: "b"},
	}}, 3)

	if events := f.match.Tick(context.Background()); events != nil {
		t.Fatalf("scripted white moved before Start: %+v", events)
	}
}

func TestMatch_StartLetsScriptedWhiteOpen(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: []domain.Participant{
		domain.Scripted{BotID: "bot-w", Name: "Knight", Level: 3},
		domain.Human{UserID: "b"},
	}}, 3)

	events := f.match.Start(context.Background())
	if len(events) != 2 || events[0].Kind != EventMatchStarted || events[1].Seat != 0 {
		t.Fatalf("unexpected start events: %+v", events)
	}
	if f.match.State().Turn != 1 {
		t.Fatalf("black should be on turn after the scripted opening")
	}
	if again := f.match.Start(context.Background()); again != nil {
		t.Fatalf("second Start produced %+v", again)
	}
}

func TestMatch_ScriptedOnlyMatchRunsToTheEnd(t *testing.T) {
	for _, kind := range []domain.GameKind{domain.KindChess, domain.KindFourChess, domain.KindCarrom} {
		t.Run(string(kind), func(t *testing.T) {
			_, hi := kind.SeatRange()
			seats := make([]domain.Participant, hi)
			for i := range seats {
				seats[i] = domain.Scripted{BotID: "bot-" + string(rune('a'+i)), Level: 1}
			}
			f := newFixture(t, MatchConfig{Kind: kind, Seats: seats, MaxPlies: 60}, 42)

			events := f.match.Start(context.Background())
			last := events[len(events)-1]
			if !last.Terminal() {
				t.Fatalf("scripted match did not finish: %+v", last.Snapshot)
			}
			if len(f.recorder.records) != 1 {
				t.Fatalf("recorder called %d times", len(f.recorder.records))
			}
			if got := len(f.recorder.records[0].Log); got > 60 {
				t.Fatalf("log has %d entries past the ply limit", got)
			}
		})
	}
}

func TestMatch_MoveLimitIsADraw(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindChess, Seats: humans("w", "b"), MaxPlies: 4}, 1)
	moves := []struct{ user, from, to string }{
		{"w", "g1", "f3"}, {"b", "g8", "f6"}, {"w", "f3", "g1"}, {"b", "f6", "g8"},
	}
	var last []Event
	for _, mv := range moves {
		last = mustSubmit(t, f.match, mv.user, domain.Move(mv.from, mv.to, ""))
	}
	snap := last[len(last)-1].Snapshot
	if !snap.Terminal || snap.Winner != domain.NoWinner || snap.Reason != domain.ReasonMoveLimit {
		t.Fatalf("unexpected outcome: %+v", snap)
	}
	if _, err := f.match.Submit(context.Background(), "w", domain.Move("g1", "f3", "")); !errors.Is(err, domain.ErrMatchOver) {
		t.Fatalf("expected ErrMatchOver after the limit, got %v", err)
	}
	if len(f.recorder.records) != 1 || f.recorder.records[0].Reason != domain.ReasonMoveLimit {
		t.Fatalf("unexpected records: %+v", f.recorder.records)
	}
}

func TestMatch_FourChessTimeoutEliminatesAndContinues(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindFourChess, Seats: humans("u0", "u1", "u2", "u3"), TurnBudget: 5 * time.Second}, 1)

	mustSubmit(t, f.match, "u0", domain.Move("12,5", "10,5", ""))
	f.clock.Add(5 * time.Second)

	events := f.match.Tick(context.Background())
	if len(events) != 1 || events[0].Kind != EventClockExpired || events[0].Seat != 1 {
		t.Fatalf("unexpected tick events: %+v", events)
	}
	snap := events[0].Snapshot
	if snap.Terminal || !snap.FourChess.Eliminated[1] || snap.Turn != 2 {
		t.Fatalf("seat 1 should be out and seat 2 on turn: %+v", snap)
	}

	f.clock.Add(4 * time.Second)
	events = mustSubmit(t, f.match, "u2", domain.Move("1,5", "3,5", ""))
	if events[0].Snapshot.Turn != 3 {
		t.Fatalf("turn should pass to seat 3, got %d", events[0].Snapshot.Turn)
	}
	if len(f.recorder.records) != 0 {
		t.Fatalf("match is still running, nothing should be recorded")
	}
}

func TestMatch_CarromShotReportsTable(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindCarrom, Seats: humans("a", "b")}, 1)

	events := mustSubmit(t, f.match, "a", domain.Shoot(-math.Pi/2, 20, 400))
	snap := events[0].Snapshot
	if snap.Carrom == nil || snap.Carrom.LastShot == nil || snap.Carrom.Shots != 1 {
		t.Fatalf("carrom view missing: %+v", snap.Carrom)
	}
	if snap.Carrom.LastShot.Steps == 0 || len(snap.Scores) != 2 {
		t.Fatalf("unexpected shot summary: %+v scores=%v", snap.Carrom.LastShot, snap.Scores)
	}
	for _, b := range snap.Carrom.Table.Coins {
		if b.Active && !b.Vel.IsZero() {
			t.Fatalf("coin %s still moving after the sweep", b.ID)
		}
	}
	if _, err := f.match.Submit(context.Background(), "a", domain.Move("e2", "e4", "")); err == nil {
		t.Fatalf("a move intent must be rejected in carrom")
	}
}

func TestMatch_LeaveDropsWhenNoHumansRemain(t *testing.T) {
	f := newFixture(t, MatchConfig{Kind: domain.KindCarrom, Seats: []domain.Participant{
		domain.Human{UserID: "a"},
		domain.Scripted{BotID: "bot", Level: 1},
		domain.Human{UserID: "c"},
		domain.Scripted{BotID: "bot2", Level: 1},
	}}, 1)

	if f.match.Leave("bot") {
		t.Fatalf("scripted seats cannot leave")
	}
	if f.match.Leave("a") {
		t.Fatalf("one human is still present")
	}
	if !f.match.Leave("c") {
		t.Fatalf("last human leaving should drop the match")
	}
	if _, err := f.match.Submit(context.Background(), "a", domain.Shoot(0, 10, 400)); !errors.Is(err, ErrMatchDropped) {
		t.Fatalf("expected ErrMatchDropped, got %v", err)
	}
	if !f.match.Done() || len(f.recorder.records) != 0 {
		t.Fatalf("dropped match must not be recorded")
	}
}
