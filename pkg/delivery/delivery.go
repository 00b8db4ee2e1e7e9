// Package delivery describes the chat side effects the core asks for and
// executes them best-effort.
package delivery

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/metrics"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/render"
)

// ChatPostHandle is the chat post showing one raid.
type ChatPostHandle interface {
	Edit(ctx context.Context, in *render.Instruction) error
	Delete(ctx context.Context) error
	// Exists reports false when the post or its channel is gone.
	Exists(ctx context.Context) (bool, error)
}

type PostLocator interface {
	Post(channelID, messageID string) ChatPostHandle
}

type NotificationSink interface {
	Send(ctx context.Context, channelID, text string) error
}

// CalendarUpdater is told whenever the set of raids of a guild changed.
type CalendarUpdater interface {
	RaidsChanged(ctx context.Context, guildID string) error
}

type NopCalendar struct{}

func (NopCalendar) RaidsChanged(context.Context, string) error { return nil }

type EffectKind string

const (
	EffectNotify         EffectKind = "notify"
	EffectEditPost       EffectKind = "edit_post"
	EffectDeletePost     EffectKind = "delete_post"
	EffectCalendarUpdate EffectKind = "calendar_update"
)

type Effect struct {
	Kind        EffectKind
	RaidID      uint
	GuildID     string
	ChannelID   string
	MessageID   string
	Text        string
	Instruction *render.Instruction
}

func (e Effect) String() string {
	return fmt.Sprintf("%s(raid=%d)", e.Kind, e.RaidID)
}

type Executor struct {
	posts    PostLocator
	sink     NotificationSink
	calendar CalendarUpdater
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

func NewExecutor(posts PostLocator, sink NotificationSink, calendar CalendarUpdater, m *metrics.Metrics) *Executor {
	if calendar == nil {
		calendar = NopCalendar{}
	}
	return &Executor{
		posts:    posts,
		sink:     sink,
		calendar: calendar,
		metrics:  m,
		log:      logrus.WithField("component", "delivery"),
	}
}

// Execute performs every effect in order. Failures are logged and counted,
// never returned: the state behind an effect is already committed.
func (x *Executor) Execute(ctx context.Context, effects []Effect) {
	for _, e := range effects {
		if err := x.execute(ctx, e); err != nil {
			x.metrics.DeliveryFailed(string(e.Kind))
			x.log.WithError(err).WithFields(logrus.Fields{
				"raid_id": e.RaidID,
				"effect":  e.Kind,
			}).Warn("best-effort delivery failed")
		}
	}
}

func (x *Executor) execute(ctx context.Context, e Effect) error {
	var err error
	switch e.Kind {
	case EffectNotify:
		if x.sink == nil {
			return nil
		}
		err = x.sink.Send(ctx, e.ChannelID, e.Text)
		if err == nil {
			x.metrics.NoticeSent()
		}
	case EffectEditPost:
		if x.posts == nil || e.MessageID == "" {
			return nil
		}
		err = x.posts.Post(e.ChannelID, e.MessageID).Edit(ctx, e.Instruction)
	case EffectDeletePost:
		if x.posts == nil || e.MessageID == "" {
			return nil
		}
		err = x.posts.Post(e.ChannelID, e.MessageID).Delete(ctx)
	case EffectCalendarUpdate:
		err = x.calendar.RaidsChanged(ctx, e.GuildID)
	default:
		err = fmt.Errorf("unknown effect %q", e.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrDelivery, e, err)
	}
	return nil
}
