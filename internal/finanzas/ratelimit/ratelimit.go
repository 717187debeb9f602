// Package ratelimit implements the fixed-window counter that gates outbound
// chat requests.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests allowed per window.
	DefaultLimit = 3
	// DefaultWindow is the length of one window.
	DefaultWindow = 10 * time.Second
)

// State is the persisted part of the limiter.
type State struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Limiter is a fixed-window request counter.
// The count resets to zero whenever now - WindowStart exceeds the window.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	state  State
}

// New creates a limiter whose first window starts at now.
// Non-positive arguments fall back to the defaults.
func New(limit int, window time.Duration, now time.Time) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:  limit,
		window: window,
		state:  State{WindowStart: now},
	}
}

// TryConsume reports whether a request may proceed at now, consuming one
// slot when it can. A denied call does not mutate the state.
func (l *Limiter) TryConsume(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.roll(now)
	if l.state.Count >= l.limit {
		return false
	}
	l.state.Count++
	return true
}

// Remaining returns how many requests are left in the window containing now.
func (l *Limiter) Remaining(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.state.Count
	if now.Sub(l.state.WindowStart) > l.window {
		count = 0
	}
	if remaining := l.limit - count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the counter and starts a new window at now.
func (l *Limiter) Reset(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = State{WindowStart: now}
}

// State returns a copy of the current counter.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Restore replaces the counter, e.g. with a persisted one.
func (l *Limiter) Restore(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.Count < 0 {
		s.Count = 0
	}
	l.state = s
}

// Limit returns the configured number of requests per window.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// roll starts a new window when the current one has elapsed.
func (l *Limiter) roll(now time.Time) {
	if now.Sub(l.state.WindowStart) > l.window {
		l.state = State{WindowStart: now}
	}
}
