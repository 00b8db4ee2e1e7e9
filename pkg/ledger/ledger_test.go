package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	signups []model.Signup
	err     error
}

func (w *recordingWriter) UpsertRaid(context.Context, *model.Raid) error { return w.err }
func (w *recordingWriter) UpsertSlot(context.Context, *model.Slot) error { return w.err }
func (w *recordingWriter) DeleteSlots(context.Context, uint) error       { return w.err }
func (w *recordingWriter) DeleteRaid(context.Context, uint) error        { return w.err }

func (w *recordingWriter) UpsertSignup(_ context.Context, s *model.Signup) error {
	if w.err != nil {
		return w.err
	}
	w.signups = append(w.signups, *s)
	return nil
}

func newLedger() *Ledger {
	return New(catalog.Default()).WithClock(func() time.Time { return time.Unix(1700000000, 0) })
}

var alice = model.Player{ID: "p1", DisplayName: "Alice"}

func TestSignUpUnionsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{ID: 7}

	_, err := l.SignUp(ctx, w, raid, alice, []string{"mage"})
	require.NoError(t, err)
	s, err := l.SignUp(ctx, w, raid, alice, []string{"priest"})
	require.NoError(t, err)
	assert.Equal(t, model.NewTagSet("mage", "priest"), s.ClassTags)

	_, err = l.SignUp(ctx, w, raid, alice, []string{"priest"})
	require.NoError(t, err)

	assert.Len(t, w.signups, 2, "repeated identical signup must not write")
	assert.Len(t, raid.Signups, 1)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), raid.Signups[0].SignupTime)
}

func TestSignUpRejectsUnknownClass(t *testing.T) {
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{ID: 7}

	_, err := l.SignUp(context.Background(), w, raid, alice, []string{"bard"})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = l.SignUp(context.Background(), w, raid, alice, nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, w.signups)
}

func TestSignUpClearsDecline(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{ID: 7}

	_, err := l.MarkUnavailable(ctx, w, raid, alice)
	require.NoError(t, err)
	assert.Len(t, ListUnavailable(raid), 1)

	s, err := l.SignUp(ctx, w, raid, alice, []string{"rogue"})
	require.NoError(t, err)
	assert.False(t, s.Unavailable)
	assert.Equal(t, model.NewTagSet("rogue"), s.ClassTags)
	assert.Len(t, ListAvailable(raid), 1)
	assert.Empty(t, ListUnavailable(raid))
}

func TestSignUpAllReplaces(t *testing.T) {
	ctx := context.Background()
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{ID: 7}

	_, err := l.SignUp(ctx, w, raid, alice, []string{"mage", "priest"})
	require.NoError(t, err)
	s, err := l.SignUpAll(ctx, w, raid, alice, []string{"rogue", "not-a-class"})
	require.NoError(t, err)
	assert.Equal(t, model.NewTagSet("rogue"), s.ClassTags)

	_, err = l.SignUpAll(ctx, w, raid, alice, []string{"not-a-class"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSignUpAllKeepsSeatEligible(t *testing.T) {
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{
		ID:      7,
		Signups: []model.Signup{{RaidID: 7, PlayerID: "p1", ClassTags: model.NewTagSet("mage")}},
		Slots:   []model.Slot{{RaidID: 7, SlotIndex: 3, AllowedClasses: model.NewTagSet("mage"), AssignedPlayerID: "p1"}},
	}

	_, err := l.SignUpAll(context.Background(), w, raid, alice, []string{"rogue"})
	assert.ErrorIs(t, err, model.ErrSlotConflict)
	assert.Empty(t, w.signups)
}

func TestMarkUnavailableSeated(t *testing.T) {
	l := newLedger()
	w := &recordingWriter{}
	raid := &model.Raid{
		ID:      7,
		Signups: []model.Signup{{RaidID: 7, PlayerID: "p1", ClassTags: model.NewTagSet("mage")}},
		Slots:   []model.Slot{{RaidID: 7, SlotIndex: 0, AllowedClasses: model.NewTagSet("mage"), AssignedPlayerID: "p1"}},
	}

	_, err := l.MarkUnavailable(context.Background(), w, raid, alice)
	assert.ErrorIs(t, err, model.ErrSlotConflict)
	assert.False(t, raid.Signups[0].Unavailable)
}

func TestStoreFailureLeavesRaidUntouched(t *testing.T) {
	l := newLedger()
	w := &recordingWriter{err: errors.New("disk full")}
	raid := &model.Raid{ID: 7}

	_, err := l.SignUp(context.Background(), w, raid, alice, []string{"mage"})
	assert.Error(t, err)
	assert.Empty(t, raid.Signups)
}
