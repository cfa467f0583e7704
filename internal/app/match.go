package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"

	"tabletop/internal/bot"
	"tabletop/internal/domain"
	"tabletop/internal/domain/carrom"
	"tabletop/internal/ports"
)

var (
	ErrTooFewSeats  = errors.New("every seat must be bound before a match starts")
	ErrNoLogger     = errors.New("logger is required")
	ErrMatchDropped = errors.New("match was dropped")
)

// MatchConfig describes a match to create.
type MatchConfig struct {
	ID         string
	Kind       domain.GameKind
	Seats      []domain.Participant
	TurnBudget time.Duration // per seat, 0 means untimed
	MaxPlies   int           // 0 means DefaultMaxPlies
	Carrom     carrom.Params // zero fields take defaults
}

// Deps are the collaborators of a match.
type Deps struct {
	Clock    clock.Clock // nil means the wall clock
	Logger   runtime.Logger
	Recorder ports.MatchRecorder // nil means results are not persisted
	Bots     bot.Deps
}

// Match owns one game from creation to its terminal outcome. Every exported method takes
// the match mutex, so intents, ticks and reads never interleave.
type Match struct {
	mu sync.Mutex

	id       string
	seats    []domain.Participant
	agents   map[int]*bot.Agent
	rules    Rules
	clock    *Clock
	now      clock.Clock
	logger   runtime.Logger
	recorder ports.MatchRecorder
	maxPlies int

	plies     int
	seq       int
	limit     *domain.Outcome
	log       []ports.LogEntry
	startedAt time.Time
	endedAt   time.Time
	kicked    bool
	recorded  bool
	dropped   bool
	left      map[string]bool
}

// NewMatch builds a match with every seat bound.
func NewMatch(cfg MatchConfig, deps Deps) (*Match, error) {
	if deps.Logger == nil {
		return nil, ErrNoLogger
	}
	if domain.LowestAvailableSeat(cfg.Seats) >= 0 {
		return nil, ErrTooFewSeats
	}
	rules, err := NewRules(cfg.Kind, len(cfg.Seats), cfg.Carrom)
	if err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Bots.Logger == nil {
		deps.Bots.Logger = deps.Logger
	}
	maxPlies := cfg.MaxPlies
	if maxPlies <= 0 {
		maxPlies = DefaultMaxPlies
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	agents := make(map[int]*bot.Agent)
	for seat, p := range cfg.Seats {
		sc, ok := p.(domain.Scripted)
		if !ok {
			continue
		}
		agent, err := bot.NewAgent(sc, deps.Bots)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", seat, err)
		}
		agents[seat] = agent
	}

	return &Match{
		id:        id,
		seats:     append([]domain.Participant(nil), cfg.Seats...),
		agents:    agents,
		rules:     rules,
		clock:     NewClock(len(cfg.Seats), cfg.TurnBudget),
		now:       deps.Clock,
		logger:    deps.Logger,
		recorder:  deps.Recorder,
		maxPlies:  maxPlies,
		startedAt: deps.Clock.Now(),
		left:      make(map[string]bool),
	}, nil
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// Kind returns the game kind.
func (m *Match) Kind() domain.GameKind { return m.rules.Kind() }

// Done reports whether the match accepts no more intents.
func (m *Match) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed()
}

// State returns the current snapshot. It has no side effects.
func (m *Match) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Start announces the match and lets a scripted seat 0 move. Only the first call has an effect.
func (m *Match) Start(ctx context.Context) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kicked || m.dropped {
		return nil
	}
	m.kicked = true
	m.logger.Info("Match %s: %s started with %d seats.", m.id, m.rules.Kind(), len(m.seats))
	events := []Event{{Kind: EventMatchStarted, Seat: -1, Snapshot: m.snapshot()}}
	return append(events, m.runScripted(ctx)...)
}

// Submit applies an intent from userID and then any scripted replies it triggers.
// A seat that has already run out of time is flagged first; the returned events then
// describe the timeout and the error explains the rejection.
func (m *Match) Submit(ctx context.Context, userID string, in domain.Intent) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if m.dropped {
		return nil, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, ErrMatchDropped)
	}
	if m.closed() {
		return nil, fmt.Errorf("%w: %w", domain.ErrIllegalIntent, domain.ErrMatchOver)
	}

	now := m.now.Now()
	if turn := m.rules.Turn(); m.clock.Expired(turn, now) {
		events := append([]Event{m.expire(ctx, turn, now)}, m.runScripted(ctx)...)
		if m.closed() {
			return events, fmt.Errorf("%w: %w: seat %d ran out of time", domain.ErrIllegalIntent, domain.ErrMatchOver, turn)
		}
		return events, fmt.Errorf("%w: seat %d ran out of time", domain.ErrIllegalIntent, turn)
	}

	seat := domain.SeatOf(m.seats, userID)
	turn := m.rules.Turn()
	if seat < 0 || seat != turn || domain.IsScripted(m.seats[seat]) {
		return nil, fmt.Errorf("%w: %q is not bound to seat %d", domain.ErrNotParticipant, userID, turn)
	}

	ev, err := m.apply(ctx, seat, in, now)
	if err != nil {
		return nil, err
	}
	return append([]Event{ev}, m.runScripted(ctx)...), nil
}

// Tick checks the clock of the seat on turn and resumes a scripted seat left on turn by an
// interrupted reply. It returns nil while nothing changed.
func (m *Match) Tick(ctx context.Context) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed() || !m.inPlay() {
		return nil
	}
	now := m.now.Now()
	turn := m.rules.Turn()
	if m.clock.Expired(turn, now) {
		return append([]Event{m.expire(ctx, turn, now)}, m.runScripted(ctx)...)
	}
	if _, scripted := m.agents[turn]; scripted {
		return m.runScripted(ctx)
	}
	return nil
}

// inPlay reports whether play has begun, so a tick never moves for a seat before Start.
func (m *Match) inPlay() bool { return m.kicked || m.plies > 0 }

// Drop tears the match down without persisting anything.
func (m *Match) Drop(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropped {
		return
	}
	m.dropped = true
	m.clock.Stop()
	m.logger.Info("Match %s: dropped (%s).", m.id, reason)
}

// Leave marks a human as gone. When no human remains the match is dropped and Leave reports true.
func (m *Match) Leave(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	seat := domain.SeatOf(m.seats, userID)
	if seat < 0 || domain.IsScripted(m.seats[seat]) {
		return false
	}
	m.left[userID] = true
	if len(m.left) < domain.CountHumans(m.seats) || m.dropped {
		return false
	}
	m.dropped = true
	m.clock.Stop()
	m.logger.Info("Match %s: dropped (%s).", m.id, domain.ReasonAbandoned)
	return true
}

func (m *Match) outcome() domain.Outcome {
	if m.limit != nil {
		return *m.limit
	}
	return m.rules.Outcome()
}

func (m *Match) closed() bool { return m.dropped || m.outcome().Terminal }

// apply runs an intent through the rules and does the bookkeeping shared by humans and scripted seats.
func (m *Match) apply(ctx context.Context, seat int, in domain.Intent, now time.Time) (Event, error) {
	next, res, err := m.rules.apply(seat, in)
	if err != nil {
		return Event{}, err
	}
	if res.Warning != nil {
		m.logger.Warn("Match %s: %v", m.id, res.Warning)
	}
	m.rules = next

	if m.clock.Started() {
		m.clock.Charge(seat, now)
	} else {
		m.clock.Start(now)
	}
	m.plies++
	m.log = append(m.log, ports.LogEntry{Seat: seat, Action: res.Action, At: now})
	if m.plies >= m.maxPlies && !m.rules.Outcome().Terminal {
		o := domain.Draw(domain.ReasonMoveLimit)
		m.limit = &o
	}
	m.seq++
	m.finish(ctx, now)
	return Event{Kind: EventIntentApplied, Seat: seat, Snapshot: m.snapshot()}, nil
}

// expire forfeits the seat on turn for running out of time.
func (m *Match) expire(ctx context.Context, seat int, now time.Time) Event {
	m.logger.Info("Match %s: seat %d ran out of time.", m.id, seat)
	m.rules = m.rules.forfeit(seat, domain.ReasonTimeout)
	m.clock.Flag(seat, now)
	m.log = append(m.log, ports.LogEntry{Seat: seat, Action: ActionTimeout, At: now})
	m.seq++
	m.finish(ctx, now)
	return Event{Kind: EventClockExpired, Seat: seat, Snapshot: m.snapshot()}
}

// runScripted keeps asking scripted seats for intents while one of them is on turn.
func (m *Match) runScripted(ctx context.Context) []Event {
	var events []Event
	for !m.closed() {
		seat := m.rules.Turn()
		agent, ok := m.agents[seat]
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			m.logger.Warn("Match %s: scripted seat %d interrupted: %v", m.id, seat, err)
			break
		}

		now := m.now.Now()
		if m.clock.Expired(seat, now) {
			events = append(events, m.expire(ctx, seat, now))
			continue
		}
		in, err := m.rules.propose(ctx, agent, seat)
		if err != nil {
			m.logger.Error("Match %s: scripted seat %d produced no intent: %v", m.id, seat, err)
			break
		}
		ev, err := m.apply(ctx, seat, in, now)
		if err != nil {
			m.logger.Error("Match %s: scripted seat %d intent %s rejected: %v", m.id, seat, in, err)
			break
		}
		events = append(events, ev)
	}
	return events
}

// finish stops the clock and hands the result to the recorder once the match is terminal.
func (m *Match) finish(ctx context.Context, now time.Time) {
	o := m.outcome()
	if !o.Terminal || m.recorded {
		return
	}
	m.recorded = true
	m.clock.Stop()
	m.endedAt = now
	m.logger.Info("Match %s: ended, winner=%d reason=%s.", m.id, o.Winner, o.Reason)

	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(ctx, m.record(o)); err != nil {
		m.logger.Error("Match %s: failed to record result: %v", m.id, err)
	}
}

func (m *Match) record(o domain.Outcome) ports.Record {
	rec := ports.Record{
		ID:        uuid.NewString(),
		MatchID:   m.id,
		Kind:      string(m.rules.Kind()),
		Winner:    o.Winner,
		Reason:    o.Reason,
		Scores:    m.rules.Scores(),
		Log:       append([]ports.LogEntry(nil), m.log...),
		StartedAt: m.startedAt,
		EndedAt:   m.endedAt,
	}
	for seat, p := range m.seats {
		rec.Participants = append(rec.Participants, ports.RecordSeat{
			Seat:     seat,
			UserID:   p.Identity(),
			Scripted: domain.IsScripted(p),
		})
	}
	if o.Winner >= 0 && o.Winner < len(m.seats) {
		rec.WinnerID = m.seats[o.Winner].Identity()
	}
	return rec
}

func (m *Match) snapshot() Snapshot {
	o := m.outcome()
	turn := m.rules.Turn()
	s := Snapshot{
		MatchID:  m.id,
		Kind:     string(m.rules.Kind()),
		Seq:      m.seq,
		Turn:     turn,
		Terminal: o.Terminal,
		Winner:   o.Winner,
		Reason:   o.Reason,
		Scores:   m.rules.Scores(),
	}
	for seat, p := range m.seats {
		v := SeatView{Seat: seat, UserID: p.Identity()}
		if sc, ok := p.(domain.Scripted); ok {
			v.Scripted = true
			v.Name = sc.Name
		}
		s.Seats = append(s.Seats, v)
	}
	if m.clock.Timed() {
		for seat := range m.seats {
			s.Clock = append(s.Clock, ClockView{
				Seat:        seat,
				RemainingMs: m.clock.Remaining(seat).Milliseconds(),
				Running:     m.clock.Running() && seat == turn,
			})
		}
	}
	m.rules.view(&s)
	return s
}
