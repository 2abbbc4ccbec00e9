/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "time"

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseListening   Phase = "listening"
	PhaseAnswering   Phase = "answering"
	PhaseAllAnswered Phase = "all-answered"
	PhaseTimedOut    Phase = "timed-out"
	PhaseRevealed    Phase = "revealed"
)

type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc so tests can swap
// in a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Round is the in-song sub-state of a playing session. It owns the answer
// window timer; every phase change other than Open cancels it.
type Round struct {
	Phase Phase
	Song  int

	timer Timer
	gen   uint64
}

// Open starts the answer window for song. expire is called with a token that
// must be handed back to Expire; stale tokens are rejected.
func (r *Round) Open(song int, d time.Duration, after AfterFunc, expire func(gen uint64)) {
	r.cancel()
	r.gen++
	gen := r.gen
	r.Phase = PhaseAnswering
	r.Song = song
	r.timer = after(d, func() { expire(gen) })
}

// Expire consumes the pending window if gen is still current.
func (r *Round) Expire(gen uint64) bool {
	if r.timer == nil || gen != r.gen {
		return false
	}
	r.timer = nil
	r.Phase = PhaseTimedOut
	return true
}

func (r *Round) Pending() bool {
	return r.timer != nil
}

func (r *Round) Listen(song int) {
	r.cancel()
	r.Phase = PhaseListening
	r.Song = song
}

func (r *Round) Complete() {
	r.cancel()
	r.Phase = PhaseAllAnswered
}

func (r *Round) Reveal() {
	r.cancel()
	r.Phase = PhaseRevealed
}

func (r *Round) Close() {
	r.cancel()
	r.Phase = PhaseIdle
}

func (r *Round) cancel() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
