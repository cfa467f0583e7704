// Package uci implements ports.MoveOracle over UCI engine processes such as Stockfish.
package uci

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	nchess "github.com/notnil/chess"
	nuci "github.com/notnil/chess/uci"

	"tabletop/internal/domain"
	"tabletop/internal/ports"
)

// DefaultMoveTime bounds a search when the request carries no depth.
const DefaultMoveTime = 200 * time.Millisecond

var ErrClosed = errors.New("oracle is closed")

// Oracle keeps at most size engine processes. Engines start lazily and are reused
// across requests; an engine that fails or is abandoned on cancellation is closed
// and its slot freed.
type Oracle struct {
	path   string
	logger runtime.Logger

	slots chan struct{}
	idle  chan *nuci.Engine

	mu     sync.Mutex
	closed bool
}

// New creates an oracle for the engine binary at path.
func New(path string, size int, logger runtime.Logger) *Oracle {
	if size < 1 {
		size = 1
	}
	return &Oracle{
		path:   path,
		logger: logger,
		slots:  make(chan struct{}, size),
		idle:   make(chan *nuci.Engine, size),
	}
}

// BestMove implements ports.MoveOracle. Every failure wraps domain.ErrEngineUnavailable.
func (o *Oracle) BestMove(ctx context.Context, req ports.OracleRequest) (*ports.OracleMove, error) {
	opt, err := nchess.FEN(req.FEN)
	if err != nil {
		return nil, fmt.Errorf("%w: bad position: %v", domain.ErrEngineUnavailable, err)
	}
	pos := nchess.NewGame(opt).Position()

	eng, err := o.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}

	type result struct {
		move *ports.OracleMove
		err  error
	}
	done := make(chan result, 1)
	go func() {
		mv, err := search(eng, pos, req)
		done <- result{move: mv, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			o.discard(eng)
			return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, r.err)
		}
		o.release(eng)
		return r.move, nil
	case <-ctx.Done():
		// The search cannot be interrupted; retire the engine once it returns.
		go func() {
			<-done
			o.discard(eng)
		}()
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, ctx.Err())
	}
}

func search(eng *nuci.Engine, pos *nchess.Position, req ports.OracleRequest) (*ports.OracleMove, error) {
	goCmd := nuci.CmdGo{Depth: req.Depth}
	if req.Depth <= 0 {
		goCmd = nuci.CmdGo{MoveTime: DefaultMoveTime}
	}
	cmds := []nuci.Cmd{nuci.CmdUCINewGame}
	if req.SkillLevel > 0 {
		cmds = append(cmds, nuci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(req.SkillLevel)})
	}
	cmds = append(cmds, nuci.CmdIsReady, nuci.CmdPosition{Position: pos}, goCmd)
	if err := eng.Run(cmds...); err != nil {
		return nil, err
	}
	best := eng.SearchResults().BestMove
	if best == nil {
		return nil, nil
	}
	return &ports.OracleMove{UCI: best.String()}, nil
}

// acquire returns an idle engine or starts a new one while a slot is free.
func (o *Oracle) acquire(ctx context.Context) (*nuci.Engine, error) {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	select {
	case eng := <-o.idle:
		return eng, nil
	default:
	}

	select {
	case eng := <-o.idle:
		return eng, nil
	case o.slots <- struct{}{}:
		eng, err := start(o.path)
		if err != nil {
			<-o.slots
			return nil, err
		}
		if o.logger != nil {
			o.logger.Debug("UCIOracle: started engine %s (%d/%d).", o.path, len(o.slots), cap(o.slots))
		}
		return eng, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func start(path string) (*nuci.Engine, error) {
	eng, err := nuci.New(path)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	if err := eng.Run(nuci.CmdUCI, nuci.CmdIsReady); err != nil {
		eng.Close()
		return nil, fmt.Errorf("handshake %s: %w", path, err)
	}
	return eng, nil
}

func (o *Oracle) release(eng *nuci.Engine) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		eng.Close()
		<-o.slots
		return
	}
	o.idle <- eng
}

func (o *Oracle) discard(eng *nuci.Engine) {
	if err := eng.Close(); err != nil && o.logger != nil {
		o.logger.Warn("UCIOracle: failed to close engine: %v", err)
	}
	<-o.slots
}

// Close stops every idle engine. Engines still searching are closed when they return.
func (o *Oracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	var errs []error
	for {
		select {
		case eng := <-o.idle:
			if err := eng.Close(); err != nil {
				errs = append(errs, err)
			}
			<-o.slots
		default:
			return errors.Join(errs...)
		}
	}
}
