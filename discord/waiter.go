package discord

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrWaitTimeout is returned when no reaction matched before the deadline.
var ErrWaitTimeout = errors.New("timed out waiting for reaction")

// ReactionMatcher reports whether a reaction is the one a waiter is after.
type ReactionMatcher func(r *discordgo.MessageReaction) bool

// ReactionWaiter fans incoming reaction events out to handlers that are
// waiting for a specific one. Each expectation is resolved at most once.
type ReactionWaiter struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*Expectation
}

// Expectation is a registered interest in one reaction. Register it before
// doing whatever prompts the reaction so an early event is not missed.
type Expectation struct {
	id     uint64
	match  ReactionMatcher
	ch     chan *discordgo.MessageReaction
	waiter *ReactionWaiter
}

func NewReactionWaiter() *ReactionWaiter {
	return &ReactionWaiter{pending: make(map[uint64]*Expectation)}
}

// Expect registers match and returns the expectation to wait on.
func (w *ReactionWaiter) Expect(match ReactionMatcher) *Expectation {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	e := &Expectation{
		id:     w.nextID,
		match:  match,
		ch:     make(chan *discordgo.MessageReaction, 1),
		waiter: w,
	}
	w.pending[e.id] = e
	return e
}

// WaitFor is Expect followed by Wait.
func (w *ReactionWaiter) WaitFor(ctx context.Context, timeout time.Duration, match ReactionMatcher) (*discordgo.MessageReaction, error) {
	return w.Expect(match).Wait(ctx, timeout)
}

// Dispatch hands r to every pending expectation whose matcher accepts it.
func (w *ReactionWaiter) Dispatch(r *discordgo.MessageReaction) {
	if r == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, e := range w.pending {
		if !e.match(r) {
			continue
		}
		// ch holds exactly one value and e leaves the map here, so it is never offered a second.
		e.ch <- r
		delete(w.pending, id)
	}
}

// Pending returns the number of unresolved expectations.
func (w *ReactionWaiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Wait blocks until a matching reaction is dispatched, the timeout elapses
// (ErrWaitTimeout), or ctx is done. The expectation is cancelled on return.
func (e *Expectation) Wait(ctx context.Context, timeout time.Duration) (*discordgo.MessageReaction, error) {
	defer e.Cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-e.ch:
		return r, nil
	case <-timer.C:
		return nil, ErrWaitTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel withdraws the expectation. Safe to call more than once.
func (e *Expectation) Cancel() {
	e.waiter.mu.Lock()
	defer e.waiter.mu.Unlock()
	delete(e.waiter.pending, e.id)
}
