package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/recurrence"
	"github.com/dukerupert/bywater/internal/store"
)

const maxBodySize = 10 << 20 // 10 MB cap on fetched feeds

// Syncer periodically fetches each enabled ICS subscription and replaces the
// member's imported busy blocks. Recurring feed entries are flattened into
// concrete events out to the sync horizon, so availability queries never
// evaluate external rules.
type Syncer struct {
	mu       sync.RWMutex
	feeds    *store.FeedStore
	client   *http.Client
	logger   *slog.Logger
	interval time.Duration
	horizon  time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSyncer(feeds *store.FeedStore, logger *slog.Logger) *Syncer {
	return &Syncer{
		feeds:    feeds,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		interval: 15 * time.Minute,
		horizon:  90 * 24 * time.Hour,
	}
}

// Start begins the sync loop. The first pass runs immediately so fresh
// subscriptions show up without waiting out a full interval.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		s.SyncAll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SyncAll(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for any in-flight sync to finish.
func (s *Syncer) Stop() {
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

// SyncAll refreshes every enabled subscription. Failures are recorded on the
// subscription and do not stop the pass.
func (s *Syncer) SyncAll(ctx context.Context) {
	subs, err := s.feeds.ListEnabledSubscriptions()
	if err != nil {
		s.logger.Error("list feed subscriptions", "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if err := s.Sync(ctx, sub); err != nil {
			s.logger.Warn("feed sync failed", "subscription_id", sub.ID, "url", sub.URL, "error", err)
			s.feeds.MarkSynced(sub.ID, time.Now(), err.Error())
			continue
		}
		s.feeds.MarkSynced(sub.ID, time.Now(), "")
	}
}

// Sync fetches and imports a single subscription.
func (s *Syncer) Sync(ctx context.Context, sub *model.FeedSubscription) error {
	body, err := s.fetch(ctx, sub.URL)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := parseICS(body)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().UTC()
	events := flatten(parsed, now.Add(-24*time.Hour), now.Add(s.horizon))

	if err := s.feeds.ReplaceEvents(ctx, sub, events); err != nil {
		return fmt.Errorf("store feed events: %w", err)
	}

	s.logger.Info("feed synced", "subscription_id", sub.ID, "events", len(events))
	return nil
}

// fetch downloads the feed body, retrying transient failures with
// exponential backoff. Client errors (4xx) fail immediately.
func (s *Syncer) fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/calendar")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("feed returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feed returned %d", resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return body, err
}

// flatten turns parsed VEVENTs into concrete busy blocks within the half-open
// window [windowStart, windowEnd). Entries with unparseable rules fall back
// to their base occurrence.
func flatten(parsed []parsedEvent, windowStart, windowEnd time.Time) []model.ExternalEvent {
	var out []model.ExternalEvent
	for _, pe := range parsed {
		duration := pe.End.Sub(pe.Start)
		if duration <= 0 {
			continue
		}

		if pe.RRule == "" {
			if pe.Start.Before(windowEnd) && pe.End.After(windowStart) {
				out = append(out, externalEvent(pe, pe.Start, duration))
			}
			continue
		}

		starts, err := recurrence.Evaluate(pe.RRule, pe.Start, pe.End, windowStart, windowEnd)
		if err != nil {
			if pe.Start.Before(windowEnd) && pe.End.After(windowStart) {
				out = append(out, externalEvent(pe, pe.Start, duration))
			}
			continue
		}
		for _, start := range starts {
			if excluded(pe.ExDates, start) {
				continue
			}
			out = append(out, externalEvent(pe, start, duration))
		}
	}
	return out
}

func externalEvent(pe parsedEvent, start time.Time, duration time.Duration) model.ExternalEvent {
	return model.ExternalEvent{
		UID:       pe.UID,
		Title:     pe.Summary,
		StartTime: start.UTC(),
		EndTime:   start.Add(duration).UTC(),
		AllDay:    pe.AllDay,
	}
}

func excluded(exDates []time.Time, start time.Time) bool {
	for _, ex := range exDates {
		if ex.Equal(start) {
			return true
		}
	}
	return false
}
