package game

import (
	"github.com/talgya/empires4x/internal/events"
	"github.com/talgya/empires4x/internal/world"
)

// Presenter shows state changes to the player. Move must eventually resolve
// done; the core attaches its follow-up work to that completion.
type Presenter interface {
	Move(m Mover, to *world.Hex, done *events.Completion)
	Release(m Mover)
}

// ImmediatePresenter has nothing to animate and resolves every move at once.
type ImmediatePresenter struct{}

func (ImmediatePresenter) Move(_ Mover, _ *world.Hex, done *events.Completion) { done.Resolve() }
func (ImmediatePresenter) Release(Mover)                                       {}

// DeferredPresenter holds completions until Flush, standing in for an
// animation layer that finishes on a later frame.
type DeferredPresenter struct {
	pending  []*events.Completion
	released []Mover
}

func (p *DeferredPresenter) Move(_ Mover, _ *world.Hex, done *events.Completion) {
	p.pending = append(p.pending, done)
}

func (p *DeferredPresenter) Release(m Mover) {
	p.released = append(p.released, m)
}

// Pending returns the number of unresolved moves.
func (p *DeferredPresenter) Pending() int {
	return len(p.pending)
}

// Released returns every mover whose visual was released, in order.
func (p *DeferredPresenter) Released() []Mover {
	return p.released
}

// Flush resolves every held completion in the order the moves were shown.
func (p *DeferredPresenter) Flush() int {
	pending := p.pending
	p.pending = nil
	for _, c := range pending {
		c.Resolve()
	}
	return len(pending)
}
