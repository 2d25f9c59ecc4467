// Package reminder fires one-shot reminders after a delay.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("reminder scheduler is stopped")

// NotifyFunc delivers a fired reminder message.
type NotifyFunc func(message string)

// Reminder is a scheduled, not yet fired reminder.
type Reminder struct {
	ID     string
	Text   string
	FireAt time.Time
}

// Scheduler keeps in-memory timers. Reminders do not survive a restart.
type Scheduler struct {
	notify NotifyFunc
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
	// idle is closed once no reminder is armed or being delivered.
	active int
	idle   chan struct{}
}

type entry struct {
	Reminder
	timer *time.Timer
}

// NewScheduler creates a scheduler that calls notify with
// "Reminder: <text>" when a reminder fires.
func NewScheduler(notify NotifyFunc) *Scheduler {
	if notify == nil {
		notify = func(msg string) { slog.Info(msg) }
	}
	return &Scheduler{
		notify:  notify,
		now:     time.Now,
		pending: make(map[string]*entry),
	}
}

// Schedule arms a reminder. A zero delay fires almost immediately.
func (s *Scheduler) Schedule(text string, delay time.Duration) error {
	if delay < 0 {
		return fmt.Errorf("negative delay %s", delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	e := &entry{Reminder: Reminder{
		ID:     uuid.NewString(),
		Text:   text,
		FireAt: s.now().Add(delay),
	}}
	e.timer = time.AfterFunc(delay, func() { s.fire(e.ID) })
	s.pending[e.ID] = e
	if s.active == 0 {
		s.idle = make(chan struct{})
	}
	s.active++

	slog.Debug("Reminder scheduled", "id", e.ID, "delay", delay)
	return nil
}

func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	e, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	stopped := s.stopped
	s.mu.Unlock()

	if !ok {
		return
	}
	if !stopped {
		s.notify("Reminder: " + e.Text)
	}

	s.mu.Lock()
	s.release()
	s.mu.Unlock()
}

// release must be called with mu held by whoever removed an entry from
// pending.
func (s *Scheduler) release() {
	s.active--
	if s.active == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

// Wait blocks until every armed reminder has been delivered or cancelled.
// It reports false if ctx ends first; the reminders stay armed.
func (s *Scheduler) Wait(ctx context.Context) bool {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	if idle == nil {
		return true
	}

	select {
	case <-idle:
		return true
	case <-ctx.Done():
		return false
	}
}

// Pending lists armed reminders, soonest first.
func (s *Scheduler) Pending() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Reminder, 0, len(s.pending))
	for _, e := range s.pending {
		out = append(out, e.Reminder)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Cancel disarms one reminder. It reports false if the reminder already
// fired or never existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.pending, id)
	s.release()
	return true
}

// Stop disarms every pending reminder and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
		s.release()
	}
}
