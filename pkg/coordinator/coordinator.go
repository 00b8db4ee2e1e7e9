// Package coordinator turns normalized chat events into validated raid state
// changes and render instructions.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/delivery"
	"github.com/sokdak/raid-bot/pkg/keylock"
	"github.com/sokdak/raid-bot/pkg/ledger"
	"github.com/sokdak/raid-bot/pkg/metrics"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/render"
	"github.com/sokdak/raid-bot/pkg/roster"
	"github.com/sokdak/raid-bot/pkg/store"
	"github.com/sokdak/raid-bot/pkg/timezone"
)

const (
	maxNameLength = 100
	maxAimLength  = 200
)

type Coordinator struct {
	store      store.RaidStore
	locks      *keylock.Locks
	ledger     *ledger.Ledger
	roster     *roster.Engine
	builder    *render.Builder
	resolver   *timezone.Resolver
	executor   *delivery.Executor
	metrics    *metrics.Metrics
	leaderRole string
	now        func() time.Time
	log        *logrus.Entry
}

type Option func(*Coordinator)

// WithExecutor makes the coordinator deliver post edits and calendar updates
// after each committed event.
func WithExecutor(x *delivery.Executor) Option {
	return func(c *Coordinator) { c.executor = x }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithLeaderRole names the guild role that grants raid leader privileges.
func WithLeaderRole(role string) Option {
	return func(c *Coordinator) { c.leaderRole = role }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(st store.RaidStore, locks *keylock.Locks, l *ledger.Ledger, r *roster.Engine, b *render.Builder, tz *timezone.Resolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    st,
		locks:    locks,
		ledger:   l,
		roster:   r,
		builder:  b,
		resolver: tz,
		now:      time.Now,
		log:      logrus.WithField("component", "coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Privileged reports whether actor may manage raid: organizer, raid leader or admin.
func (c *Coordinator) Privileged(raid *model.Raid, actor Actor) bool {
	if actor.Admin || (actor.ID != "" && actor.ID == raid.OrganizerID) {
		return true
	}
	return c.leaderRole != "" && slices.Contains(actor.Roles, c.leaderRole)
}

func requiresPrivilege(ev Event) bool {
	switch ev.Kind {
	case KindAssign, KindEditTime, KindEditAim, KindDelete, KindConfigureRoster:
		return true
	case KindSignUp, KindCancel, KindAutoAssign:
		return ev.Payload.PlayerID != "" && ev.Payload.PlayerID != ev.Actor.ID
	}
	// unassign is checked by the roster engine itself
	return false
}

// HandleEvent validates and applies ev under the raid's lock, then renders
// the raid and delivers the post update best-effort.
func (c *Coordinator) HandleEvent(ctx context.Context, ev Event) (*render.Instruction, error) {
	log := c.log.WithFields(logrus.Fields{
		"raid_id": ev.RaidID,
		"kind":    ev.Kind,
		"actor":   ev.Actor.ID,
	})

	if err := validateEvent(ev); err != nil {
		c.metrics.Event(string(ev.Kind), "rejected")
		return nil, err
	}

	var (
		raid      *model.Raid
		guildZone string
		deleted   bool
	)
	unlock := c.locks.Lock(ev.RaidID)
	err := c.store.Atomically(ctx, func(tx store.RaidStore) error {
		r, err := tx.GetRaid(ctx, ev.RaidID)
		if err != nil {
			return err
		}
		if requiresPrivilege(ev) && !c.Privileged(r, ev.Actor) {
			return fmt.Errorf("%w: %s requires the organizer, a raid leader or an admin", model.ErrPermission, ev.Kind)
		}
		if guildZone, err = tx.Zone(ctx, model.ZoneScopeGuild, r.GuildID); err != nil {
			return err
		}
		deleted, err = c.apply(ctx, tx, r, ev, guildZone)
		raid = r
		return err
	})
	unlock()

	if err != nil {
		return nil, c.fail(log, ev.Kind, err)
	}
	c.metrics.Event(string(ev.Kind), "ok")
	log.Debug("raid event applied")

	var (
		in      *render.Instruction
		effects []delivery.Effect
	)
	if deleted {
		in = render.Removed(raid)
		effects = append(effects, postEffect(delivery.EffectDeletePost, in))
	} else {
		in = c.builder.Build(raid, guildZone)
		effects = append(effects, postEffect(delivery.EffectEditPost, in))
	}
	if deleted || ev.Kind == KindEditTime {
		effects = append(effects, delivery.Effect{Kind: delivery.EffectCalendarUpdate, RaidID: raid.ID, GuildID: raid.GuildID})
	}
	c.deliver(ctx, effects)
	return in, nil
}

func (c *Coordinator) apply(ctx context.Context, tx store.RaidStore, raid *model.Raid, ev Event, guildZone string) (bool, error) {
	p := ev.Payload
	switch ev.Kind {
	case KindSignUp:
		_, err := c.ledger.SignUp(ctx, tx, raid, target(ev), p.ClassTags)
		return false, err
	case KindSignUpAll:
		_, err := c.ledger.SignUpAll(ctx, tx, raid, target(ev), ev.Actor.HeldClasses)
		return false, err
	case KindCancel:
		_, err := c.ledger.MarkUnavailable(ctx, tx, raid, target(ev))
		return false, err
	case KindAssign:
		return false, c.roster.Assign(ctx, tx, raid, p.SlotIndex, p.PlayerID)
	case KindAutoAssign:
		_, err := c.roster.AutoAssign(ctx, tx, raid, target(ev).ID, p.Class)
		return false, err
	case KindUnassign:
		return false, c.roster.Unassign(ctx, tx, raid, p.SlotIndex, c.Privileged(raid, ev.Actor))
	case KindEditTime:
		userZone, err := tx.Zone(ctx, model.ZoneScopeUser, ev.Actor.ID)
		if err != nil {
			return false, err
		}
		ts, err := c.parseFuture(p.Time, c.resolver.Resolve(userZone, guildZone))
		if err != nil {
			return false, err
		}
		raid.ScheduledTime = ts
		raid.Notified = false
		return false, tx.UpsertRaid(ctx, raid)
	case KindEditAim:
		raid.Aim = strings.TrimSpace(p.Aim)
		return false, tx.UpsertRaid(ctx, raid)
	case KindDelete:
		return true, tx.DeleteRaid(ctx, raid.ID)
	case KindConfigureRoster:
		switch p.Roster {
		case RosterEnable:
			return false, c.roster.Enable(ctx, tx, raid)
		case RosterDisable:
			return false, c.roster.Disable(ctx, tx, raid)
		default:
			return false, c.roster.Override(ctx, tx, raid, p.SlotIndex, p.ClassTags)
		}
	}
	return false, fmt.Errorf("%w: unknown event %q", model.ErrValidation, ev.Kind)
}

func validateEvent(ev Event) error {
	if ev.RaidID == 0 {
		return fmt.Errorf("%w: missing raid id", model.ErrValidation)
	}
	if ev.Actor.ID == "" {
		return fmt.Errorf("%w: missing actor", model.ErrValidation)
	}
	p := ev.Payload
	switch ev.Kind {
	case KindSignUp, KindCancel, KindDelete:
	case KindSignUpAll:
		if p.PlayerID != "" && p.PlayerID != ev.Actor.ID {
			return fmt.Errorf("%w: held roles are only known for yourself", model.ErrValidation)
		}
	case KindAssign:
		if p.PlayerID == "" {
			return fmt.Errorf("%w: missing player", model.ErrValidation)
		}
	case KindAutoAssign:
		if p.Class == "" {
			return fmt.Errorf("%w: missing class", model.ErrValidation)
		}
	case KindUnassign:
	case KindEditTime:
		if strings.TrimSpace(p.Time) == "" {
			return fmt.Errorf("%w: missing time", model.ErrValidation)
		}
	case KindEditAim:
		if utf8.RuneCountInString(p.Aim) > maxAimLength {
			return fmt.Errorf("%w: aim is longer than %d characters", model.ErrValidation, maxAimLength)
		}
	case KindConfigureRoster:
		switch p.Roster {
		case RosterEnable, RosterDisable, RosterOverride:
		default:
			return fmt.Errorf("%w: unknown roster action %q", model.ErrValidation, p.Roster)
		}
	default:
		return fmt.Errorf("%w: unknown event %q", model.ErrValidation, ev.Kind)
	}
	return nil
}

// Schedule creates a raid. The caller publishes the post and reports its id
// through AttachPost.
func (c *Coordinator) Schedule(ctx context.Context, req ScheduleRequest) (*render.Instruction, error) {
	log := c.log.WithFields(logrus.Fields{"guild_id": req.GuildID, "organizer": req.Organizer.ID})

	name := strings.TrimSpace(req.Name)
	switch {
	case req.GuildID == "" || req.ChannelID == "" || req.Organizer.ID == "":
		return nil, fmt.Errorf("%w: missing guild, channel or organizer", model.ErrValidation)
	case name == "":
		return nil, fmt.Errorf("%w: raid name is required", model.ErrValidation)
	case utf8.RuneCountInString(name) > maxNameLength:
		return nil, fmt.Errorf("%w: raid name is longer than %d characters", model.ErrValidation, maxNameLength)
	case utf8.RuneCountInString(req.Aim) > maxAimLength:
		return nil, fmt.Errorf("%w: aim is longer than %d characters", model.ErrValidation, maxAimLength)
	}

	raid := &model.Raid{
		GuildID:     req.GuildID,
		ChannelID:   req.ChannelID,
		OrganizerID: req.Organizer.ID,
		Name:        name,
		Tier:        strings.TrimSpace(req.Tier),
		Aim:         strings.TrimSpace(req.Aim),
	}
	var guildZone string
	err := c.store.Atomically(ctx, func(tx store.RaidStore) error {
		var err error
		if guildZone, err = tx.Zone(ctx, model.ZoneScopeGuild, req.GuildID); err != nil {
			return err
		}
		userZone, err := tx.Zone(ctx, model.ZoneScopeUser, req.Organizer.ID)
		if err != nil {
			return err
		}
		if raid.ScheduledTime, err = c.parseFuture(req.Time, c.resolver.Resolve(userZone, guildZone)); err != nil {
			return err
		}
		if err := tx.UpsertRaid(ctx, raid); err != nil {
			return err
		}
		if req.Roster {
			return c.roster.Enable(ctx, tx, raid)
		}
		return nil
	})
	if err != nil {
		return nil, c.fail(log, "schedule", err)
	}
	c.metrics.Event("schedule", "ok")
	log.WithField("raid_id", raid.ID).Info("raid scheduled")

	c.deliver(ctx, []delivery.Effect{{Kind: delivery.EffectCalendarUpdate, RaidID: raid.ID, GuildID: raid.GuildID}})
	return c.builder.Build(raid, guildZone), nil
}

// AttachPost records the chat post that displays the raid.
func (c *Coordinator) AttachPost(ctx context.Context, raidID uint, messageID string) error {
	unlock := c.locks.Lock(raidID)
	defer unlock()

	return c.store.Atomically(ctx, func(tx store.RaidStore) error {
		raid, err := tx.GetRaid(ctx, raidID)
		if err != nil {
			return err
		}
		raid.MessageID = messageID
		return tx.UpsertRaid(ctx, raid)
	})
}

// View renders the raid with times in the viewer's own zone. It never writes.
func (c *Coordinator) View(ctx context.Context, raidID uint, viewerID string) (*render.Instruction, error) {
	raid, err := c.store.GetRaid(ctx, raidID)
	if err != nil {
		return nil, err
	}
	guildZone, err := c.store.Zone(ctx, model.ZoneScopeGuild, raid.GuildID)
	if err != nil {
		return nil, err
	}
	userZone, err := c.store.Zone(ctx, model.ZoneScopeUser, viewerID)
	if err != nil {
		return nil, err
	}
	in := c.builder.Build(raid, guildZone)
	in.Times = c.resolver.Format(raid.ScheduledTime, userZone, guildZone)
	return in, nil
}

// SetZone stores the display zone of a user, or of a guild when guildScope
// is set; the latter is reserved to admins.
func (c *Coordinator) SetZone(ctx context.Context, actor Actor, guildID, zone string, guildScope bool) error {
	zone = strings.TrimSpace(zone)
	if !timezone.Valid(zone) {
		return fmt.Errorf("%w: unknown time zone %q", model.ErrValidation, zone)
	}
	pref := &model.ZonePreference{Scope: model.ZoneScopeUser, OwnerID: actor.ID, Zone: zone}
	if guildScope {
		if !actor.Admin {
			return fmt.Errorf("%w: only admins can set the server time zone", model.ErrPermission)
		}
		pref = &model.ZonePreference{Scope: model.ZoneScopeGuild, OwnerID: guildID, Zone: zone}
	}
	if pref.OwnerID == "" {
		return fmt.Errorf("%w: missing owner", model.ErrValidation)
	}
	if err := c.store.SetZone(ctx, pref); err != nil {
		return c.fail(c.log.WithField("actor", actor.ID), "set_zone", err)
	}
	return nil
}

func (c *Coordinator) parseFuture(input string, loc *time.Location) (int64, error) {
	ts, err := timezone.Parse(input, loc)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrValidation, err)
	}
	if ts <= c.now().Unix() {
		return 0, fmt.Errorf("%w: %s is in the past", model.ErrValidation, strings.TrimSpace(input))
	}
	return ts, nil
}

// fail logs err and hides store details from the caller.
func (c *Coordinator) fail(log *logrus.Entry, kind Kind, err error) error {
	if errors.Is(err, model.ErrStore) {
		c.metrics.Event(string(kind), "error")
		log.WithError(err).Error("raid operation aborted")
		return fmt.Errorf("%w: %s failed", model.ErrStore, kind)
	}
	c.metrics.Event(string(kind), "rejected")
	log.WithError(err).Debug("raid operation rejected")
	return err
}

func (c *Coordinator) deliver(ctx context.Context, effects []delivery.Effect) {
	if c.executor == nil {
		return
	}
	c.executor.Execute(ctx, effects)
}

func postEffect(kind delivery.EffectKind, in *render.Instruction) delivery.Effect {
	return delivery.Effect{
		Kind:        kind,
		RaidID:      in.RaidID,
		GuildID:     in.GuildID,
		ChannelID:   in.ChannelID,
		MessageID:   in.MessageID,
		Instruction: in,
	}
}

func target(ev Event) model.Player {
	if ev.Payload.PlayerID != "" && ev.Payload.PlayerID != ev.Actor.ID {
		return model.Player{ID: ev.Payload.PlayerID, DisplayName: ev.Payload.PlayerName}
	}
	return model.Player{ID: ev.Actor.ID, DisplayName: ev.Actor.DisplayName}
}
