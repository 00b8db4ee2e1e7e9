// Package ledger records who is available for a raid and with which classes.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/store"
)

type Ledger struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

func New(c *catalog.Catalog) *Ledger {
	return &Ledger{catalog: c, now: time.Now}
}

// WithClock replaces the time source used for signup timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// SignUp marks the player available and unions classTags into the declared set.
func (l *Ledger) SignUp(ctx context.Context, st store.Writer, raid *model.Raid, player model.Player, classTags []string) (*model.Signup, error) {
	if err := l.validatePlayer(player); err != nil {
		return nil, err
	}
	if unknown := l.catalog.Unknown(classTags); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown classes %s", model.ErrValidation, strings.Join(unknown, ", "))
	}

	tags := model.NewTagSet(classTags...)
	next := l.base(raid, player)
	if cur := raid.Signup(player.ID); cur != nil && !cur.Unavailable {
		tags = cur.ClassTags.Union(tags)
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: at least one class is required", model.ErrValidation)
	}
	next.ClassTags = tags
	next.Unavailable = false

	return l.write(ctx, st, raid, next)
}

// SignUpAll replaces the declared set with every held tag the catalog knows.
func (l *Ledger) SignUpAll(ctx context.Context, st store.Writer, raid *model.Raid, player model.Player, heldTags []string) (*model.Signup, error) {
	if err := l.validatePlayer(player); err != nil {
		return nil, err
	}

	var known []string
	for _, t := range heldTags {
		if l.catalog.Has(t) {
			known = append(known, t)
		}
	}
	tags := model.NewTagSet(known...)
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: none of the held roles is a known class", model.ErrValidation)
	}
	if seat := raid.SeatOf(player.ID); seat >= 0 {
		if slot := raid.Slot(seat); slot != nil && !slot.AllowedClasses.Intersects(tags) {
			return nil, fmt.Errorf("%w: player holds slot %d which none of the new classes fit", model.ErrSlotConflict, seat)
		}
	}

	next := l.base(raid, player)
	next.ClassTags = tags
	next.Unavailable = false

	return l.write(ctx, st, raid, next)
}

// MarkUnavailable records a decline. A player seated in the roster must be
// unassigned by a privileged actor first.
func (l *Ledger) MarkUnavailable(ctx context.Context, st store.Writer, raid *model.Raid, player model.Player) (*model.Signup, error) {
	if err := l.validatePlayer(player); err != nil {
		return nil, err
	}
	if seat := raid.SeatOf(player.ID); seat >= 0 {
		return nil, fmt.Errorf("%w: player occupies slot %d", model.ErrSlotConflict, seat)
	}

	next := l.base(raid, player)
	next.ClassTags = model.TagSet{}
	next.Unavailable = true

	return l.write(ctx, st, raid, next)
}

func ListAvailable(raid *model.Raid) []model.Signup {
	return filter(raid, false)
}

func ListUnavailable(raid *model.Raid) []model.Signup {
	return filter(raid, true)
}

func filter(raid *model.Raid, unavailable bool) []model.Signup {
	var out []model.Signup
	for _, s := range raid.Signups {
		if s.Unavailable == unavailable {
			out = append(out, s)
		}
	}
	return out
}

func (l *Ledger) validatePlayer(player model.Player) error {
	if player.ID == "" {
		return fmt.Errorf("%w: missing player id", model.ErrValidation)
	}
	return nil
}

// base returns a copy of the current row, or a fresh one stamped with now.
func (l *Ledger) base(raid *model.Raid, player model.Player) model.Signup {
	next := model.Signup{
		RaidID:     raid.ID,
		PlayerID:   player.ID,
		SignupTime: l.now().UTC(),
	}
	if cur := raid.Signup(player.ID); cur != nil {
		next = *cur
	}
	if player.DisplayName != "" {
		next.DisplayName = player.DisplayName
	}
	if next.DisplayName == "" {
		next.DisplayName = player.ID
	}
	return next
}

func (l *Ledger) write(ctx context.Context, st store.Writer, raid *model.Raid, next model.Signup) (*model.Signup, error) {
	if cur := raid.Signup(next.PlayerID); cur != nil && signupEqual(*cur, next) {
		return cur, nil
	}
	if err := st.UpsertSignup(ctx, &next); err != nil {
		return nil, err
	}
	raid.PutSignup(next)
	return raid.Signup(next.PlayerID), nil
}

func signupEqual(a, b model.Signup) bool {
	return a.DisplayName == b.DisplayName &&
		a.Unavailable == b.Unavailable &&
		a.ClassTags.Equal(b.ClassTags)
}
