package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/bywater/internal/calendar"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// reminderLead is how far ahead of an occurrence's start the reminder goes out.
const reminderLead = 10 * time.Minute

// Scheduler periodically checks for event reminders to send. Occurrences come
// from the expansion engine, so deleted and rescheduled ones are respected.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	events   *store.CalendarEventStore
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, eventStore *store.CalendarEventStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		events:   eventStore,
		logger:   logger,
		interval: 60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	windowStart := now.Add(reminderLead)
	windowEnd := windowStart.Add(s.interval)

	series, err := s.events.ListOverlapping(ctx, windowStart, windowEnd)
	if err != nil {
		s.logger.Error("list events for reminders", "error", err)
		return
	}

	for i := range series {
		ev := &series[i]

		exceptions, err := s.events.ListExceptions(ctx, ev.ID)
		if err != nil {
			s.logger.Error("list exceptions for reminders", "event_id", ev.ID, "error", err)
			continue
		}

		occs, err := calendar.Expand(*ev, exceptions, windowStart, windowEnd)
		if err != nil {
			// Bad rules are reported at write time; skip here.
			continue
		}
		if len(occs) == 0 {
			continue
		}

		members, err := s.events.ListMembers(ctx, ev.ID)
		if err != nil {
			s.logger.Error("list event members for reminders", "event_id", ev.ID, "error", err)
			continue
		}

		for _, occ := range occs {
			// Expansion also returns occurrences already in progress that
			// merely overlap the window; those get no reminder.
			if occ.Start.Before(windowStart) || !occ.Start.Before(windowEnd) {
				continue
			}
			s.remind(ev.ID, occ, members)
		}
	}
}

func (s *Scheduler) remind(eventID int64, occ calendar.Occurrence, members []model.EventMember) {
	ref := fmt.Sprintf("event-%d-%d", eventID, occ.Start.Unix())
	fresh, err := s.push.MarkSent(ref)
	if err != nil {
		s.logger.Error("mark reminder sent", "ref", ref, "error", err)
		return
	}
	if !fresh {
		return
	}

	payload := Payload{
		Title: "Upcoming Event",
		Body:  fmt.Sprintf("%s starts at %s", occ.Title, occ.Start.Local().Format("3:04 PM")),
		URL:   "/calendar",
		Tag:   fmt.Sprintf("event-%d", eventID),
	}

	for _, m := range members {
		if m.Role != model.RoleInvolved {
			continue
		}
		subs, err := s.push.ListByMember(m.MemberID)
		if err != nil {
			s.logger.Error("list push subscriptions", "member_id", m.MemberID, "error", err)
			continue
		}
		for i := range subs {
			sub := &subs[i]
			if err := s.service.Send(sub, payload); err != nil {
				if errors.Is(err, ErrExpired) {
					s.push.DeleteByEndpoint(sub.Endpoint)
				} else {
					s.logger.Warn("send reminder", "endpoint", sub.Endpoint, "error", err)
				}
			}
		}
	}
}
