// Package engine drives a game without a player in the loop.
// It opens rounds, lets computer factions act, harvests farms, and keeps
// a short log of notable happenings for the API and the savegame.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/empires4x/internal/game"
)

// ErrNoFactions is returned when rounds are requested for an empty game.
var ErrNoFactions = errors.New("engine: game has no factions")

// Engine plays rounds of a game.
type Engine struct {
	Game      *game.Game
	Interval  time.Duration // Base delay between rounds in Run
	Autopilot bool          // Let the policy play the human faction too
	Policy    Policy

	// OnRound is called after every finished round, with the engine locked.
	// It must not call the engine's locking methods.
	OnRound func(RoundReport)

	mu     sync.Mutex
	speed  float64 // Multiplier: 1.0 = one round per Interval, 0 = paused
	log    *slog.Logger
	rng    *rand.Rand
	events []Event
	stats  Stats

	subs    map[int]chan Event
	nextSub int

	finished int // Round whose report is still owed
}

// New wraps g. The seed drives every random choice the computer
// factions make, so equal seeds replay equal games.
func New(g *game.Game, seed int64) *Engine {
	e := &Engine{
		Game:     g,
		speed:    1.0,
		Interval: time.Second,
		log:      g.Logger(),
		Policy:   DefaultPolicy(),
		rng:      rand.New(rand.NewSource(seed + 300)),
	}
	e.subscribe()
	return e
}

// Do runs fn with exclusive access to the game.
func (e *Engine) Do(fn func(g *game.Game)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.Game)
}

// Speed returns the round rate multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the round rate. Zero pauses Run; negative values are refused.
func (e *Engine) SetSpeed(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("engine: invalid speed %v", v)
	}
	e.mu.Lock()
	e.speed = v
	e.mu.Unlock()
	return nil
}

// Step plays as much of the open round as it can and reports whether the
// round finished. Without Autopilot a round stops on the human player's turn.
func (e *Engine) Step() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step()
}

func (e *Engine) step() (bool, error) {
	g := e.Game
	if len(g.Factions()) == 0 {
		return false, ErrNoFactions
	}
	if g.Round() == 0 || g.RoundOver() {
		g.RunQueue()
		e.report()
		g.NextRound()
	}
	g.RunQueue()

	if !g.RoundOver() && e.Autopilot {
		if f := g.CurrentFaction(); f != nil && f.IsHuman() {
			f.EndTurn()
			g.RunQueue()
		}
	}
	e.report()
	return g.RoundOver(), nil
}

// report finishes a round that ended since the last step, including rounds
// closed by the player through Do.
func (e *Engine) report() {
	if r := e.finished; r != 0 {
		e.finished = 0
		e.finishRound(r)
	}
}

// RunRounds plays n complete rounds. It stops early when the context is
// cancelled or when a round waits on the human player.
func (e *Engine) RunRounds(ctx context.Context, n int) (int, error) {
	played := 0
	for played < n {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		done, err := e.Step()
		if err != nil {
			return played, err
		}
		if !done {
			var round int
			e.Do(func(g *game.Game) { round = g.Round() })
			e.log.Info("round waiting on the player", "round", round)
			return played, nil
		}
		played++
	}
	return played, nil
}

// Run plays rounds on a timer until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("engine started", "interval", e.Interval, "speed", e.Speed())
	defer e.log.Info("engine stopped")

	for {
		wait := 100 * time.Millisecond
		if speed := e.Speed(); speed > 0 {
			start := time.Now()
			if _, err := e.Step(); err != nil {
				e.log.Error("engine step failed", "error", err)
				return
			}
			wait = time.Duration(float64(e.Interval)/speed) - time.Since(start)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(max(wait, 0)):
		}
	}
}
