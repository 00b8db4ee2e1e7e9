// Package scheduler runs the periodic sweep that announces upcoming raids and
// retires finished or orphaned ones.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/delivery"
	"github.com/sokdak/raid-bot/pkg/keylock"
	"github.com/sokdak/raid-bot/pkg/ledger"
	"github.com/sokdak/raid-bot/pkg/metrics"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/store"
)

type Config struct {
	Interval     time.Duration
	Lookahead    time.Duration
	Retention    time.Duration
	NotifyWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		Lookahead:    time.Hour,
		Retention:    2 * time.Hour,
		NotifyWindow: 15 * time.Minute,
	}
}

const (
	reasonPostGone = "post_gone"
	reasonExpired  = "expired"
)

type Scheduler struct {
	store    store.RaidStore
	locks    *keylock.Locks
	posts    delivery.PostLocator
	executor *delivery.Executor
	metrics  *metrics.Metrics
	cfg      Config
	now      func() time.Time
	log      *logrus.Entry

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(st store.RaidStore, locks *keylock.Locks, posts delivery.PostLocator, executor *delivery.Executor, m *metrics.Metrics, cfg Config) *Scheduler {
	return &Scheduler{
		store:    st,
		locks:    locks,
		posts:    posts,
		executor: executor,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
		log:      logrus.WithField("component", "scheduler"),
		stopChan: make(chan struct{}),
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Start launches the sweep loop: it sweeps immediately and then on every
// interval until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.WithField("interval", s.cfg.Interval).Info("starting expiry scheduler")

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry scheduler stopped (context cancelled)")
			return
		case <-s.stopChan:
			s.log.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	effects, err := s.RunOnce(ctx)
	if err != nil {
		s.log.WithError(err).Error("sweep failed")
	}
	if s.executor != nil {
		s.executor.Execute(ctx, effects)
	}
}

// RunOnce performs one sweep and returns the effects for the transport layer.
// State changes are committed before RunOnce returns; effects are not executed.
func (s *Scheduler) RunOnce(ctx context.Context) ([]delivery.Effect, error) {
	now := s.now()
	raids, err := s.store.SelectRaidsBefore(ctx, now.Add(s.cfg.Lookahead).Unix())
	if err != nil {
		s.metrics.Sweep(true)
		return nil, fmt.Errorf("failed to list raids: %w", err)
	}
	s.metrics.Sweep(false)

	var effects []delivery.Effect
	for _, r := range raids {
		if ctx.Err() != nil {
			break
		}
		effects = append(effects, s.sweepRaid(ctx, r, now)...)
	}
	return effects, nil
}

func (s *Scheduler) sweepRaid(ctx context.Context, listed model.Raid, now time.Time) []delivery.Effect {
	log := s.log.WithField("raid_id", listed.ID)

	// the existence probe is network I/O and stays outside the raid lock
	gone := false
	if s.posts != nil && listed.MessageID != "" {
		exists, err := s.posts.Post(listed.ChannelID, listed.MessageID).Exists(ctx)
		if err != nil {
			log.WithError(err).Warn("failed to check raid post, skipping")
			return nil
		}
		gone = !exists
	}

	unlock := s.locks.Lock(listed.ID)
	defer unlock()

	raid, err := s.store.GetRaid(ctx, listed.ID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		log.WithError(err).Error("failed to load raid")
		return nil
	}

	if gone && raid.MessageID == listed.MessageID {
		return s.retire(ctx, raid, reasonPostGone, log)
	}

	start := raid.StartTime()
	if now.After(start.Add(s.cfg.Retention)) {
		retired := s.retire(ctx, raid, reasonExpired, log)
		if retired == nil {
			// the post stays while the raid is still stored
			return nil
		}
		effects := []delivery.Effect{{
			Kind:      delivery.EffectDeletePost,
			RaidID:    raid.ID,
			GuildID:   raid.GuildID,
			ChannelID: raid.ChannelID,
			MessageID: raid.MessageID,
		}}
		return append(effects, retired...)
	}

	if !raid.Notified && inWindow(now, start.Add(-2*s.cfg.NotifyWindow), start.Add(-s.cfg.NotifyWindow)) {
		// marked before delivery: a failed notice is never retried
		raid.Notified = true
		if err := s.store.UpsertRaid(ctx, raid); err != nil {
			log.WithError(err).Error("failed to mark raid notified")
			return nil
		}
		return []delivery.Effect{{
			Kind:      delivery.EffectNotify,
			RaidID:    raid.ID,
			GuildID:   raid.GuildID,
			ChannelID: raid.ChannelID,
			MessageID: raid.MessageID,
			Text:      Notice(raid, now),
		}}
	}
	return nil
}

// retire deletes the raid and returns its follow-up effects, or nil when the
// raid could not be deleted.
func (s *Scheduler) retire(ctx context.Context, raid *model.Raid, reason string, log *logrus.Entry) []delivery.Effect {
	if err := s.store.DeleteRaid(ctx, raid.ID); err != nil && !errors.Is(err, model.ErrNotFound) {
		log.WithError(err).Error("failed to retire raid")
		return nil
	}
	s.metrics.Retired(reason)
	log.WithField("reason", reason).Info("raid retired")
	return []delivery.Effect{{
		Kind:    delivery.EffectCalendarUpdate,
		RaidID:  raid.ID,
		GuildID: raid.GuildID,
	}}
}

func inWindow(now, from, to time.Time) bool {
	return !now.Before(from) && !now.After(to)
}

// Notice is the plain text of the starting soon announcement.
func Notice(raid *model.Raid, now time.Time) string {
	minutes := int(raid.StartTime().Sub(now).Round(time.Minute) / time.Minute)

	var assigned, benched []string
	for _, slot := range raid.Slots {
		if slot.Empty() {
			continue
		}
		if su := raid.Signup(slot.AssignedPlayerID); su != nil {
			assigned = append(assigned, su.DisplayName)
		}
	}
	for _, su := range ledger.ListAvailable(raid) {
		if raid.SeatOf(su.PlayerID) < 0 {
			benched = append(benched, su.DisplayName)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s starts in %d minutes.", raid.Name, minutes)
	if raid.RosterEnabled {
		fmt.Fprintf(&sb, "\nRoster: %s", joinOrNone(assigned))
	}
	fmt.Fprintf(&sb, "\nAvailable: %s", joinOrNone(benched))
	return sb.String()
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
