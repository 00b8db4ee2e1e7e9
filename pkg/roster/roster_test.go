package roster

import (
	"context"
	"testing"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Gorm, *Engine, *model.Raid) {
	t.Helper()
	st, err := store.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	raid := &model.Raid{GuildID: "g1", ChannelID: "c1", Name: "BWL", ScheduledTime: 1000}
	require.NoError(t, st.UpsertRaid(context.Background(), raid))
	return st, New(catalog.Default()), raid
}

func signUp(t *testing.T, st *store.Gorm, raid *model.Raid, playerID string, tags ...string) {
	t.Helper()
	s := model.Signup{RaidID: raid.ID, PlayerID: playerID, DisplayName: playerID, ClassTags: model.NewTagSet(tags...)}
	require.NoError(t, st.UpsertSignup(context.Background(), &s))
	raid.PutSignup(s)
}

func reload(t *testing.T, st *store.Gorm, raid *model.Raid) *model.Raid {
	t.Helper()
	got, err := st.GetRaid(context.Background(), raid.ID)
	require.NoError(t, err)
	return got
}

func TestEnableWritesTemplate(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)

	require.Equal(t, Free, StateOf(raid))
	require.NoError(t, e.Enable(ctx, st, raid))
	assert.Equal(t, Rostered, StateOf(raid))

	got := reload(t, st, raid)
	require.Len(t, got.Slots, 12)
	assert.True(t, got.RosterEnabled)
	for i, s := range got.Slots {
		want, _ := catalog.Default().DefaultClasses(i)
		assert.Equal(t, i, s.SlotIndex)
		assert.Equal(t, want, s.AllowedClasses)
		assert.True(t, s.Empty())
	}

	assert.ErrorIs(t, e.Enable(ctx, st, raid), model.ErrValidation)
}

func TestDisableThenEnableRestoresTemplate(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	require.NoError(t, e.Override(ctx, st, raid, 0, []string{"mage"}))
	assert.Equal(t, Customized, StateOf(raid))

	require.NoError(t, e.Disable(ctx, st, raid))
	assert.Equal(t, Free, StateOf(raid))
	assert.Empty(t, reload(t, st, raid).Slots)

	require.NoError(t, e.Enable(ctx, st, raid))
	got := reload(t, st, raid)
	assert.Equal(t, Rostered, StateOf(got))
	tank, _ := catalog.Default().DefaultClasses(0)
	assert.Equal(t, tank, got.Slots[0].AllowedClasses)
	assert.False(t, got.Slots[0].Custom)
}

func TestAutoAssignScenario(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "rogue")
	signUp(t, st, raid, "B", "rogue")

	idx, err := e.AutoAssign(ctx, st, raid, "A", "rogue")
	require.NoError(t, err)
	assert.Equal(t, 5, idx)

	_, err = e.AutoAssign(ctx, st, raid, "B", "rogue")
	assert.ErrorIs(t, err, model.ErrNoSlotAvailable)

	err = e.Unassign(ctx, st, raid, idx, false)
	assert.ErrorIs(t, err, model.ErrPermission)

	got := reload(t, st, raid)
	assert.Equal(t, "A", got.Slots[idx].AssignedPlayerID)
}

func TestAutoAssignFirstFit(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "warrior")
	signUp(t, st, raid, "B", "warrior")
	signUp(t, st, raid, "C", "warrior")

	for _, want := range []struct {
		player string
		slot   int
	}{{"A", 0}, {"B", 1}, {"C", 7}} {
		idx, err := e.AutoAssign(ctx, st, raid, want.player, "warrior")
		require.NoError(t, err)
		assert.Equal(t, want.slot, idx, want.player)
	}
}

func TestAutoAssignRequiresDeclaredClass(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "mage")

	_, err := e.AutoAssign(ctx, st, raid, "A", "warrior")
	assert.ErrorIs(t, err, model.ErrClassMismatch)
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "priest")
	signUp(t, st, raid, "B", "priest")

	assert.ErrorIs(t, e.Assign(ctx, st, raid, 0, "A"), model.ErrClassMismatch)
	assert.ErrorIs(t, e.Assign(ctx, st, raid, 2, "nobody"), model.ErrValidation)
	assert.ErrorIs(t, e.Assign(ctx, st, raid, 99, "A"), model.ErrValidation)

	require.NoError(t, e.Assign(ctx, st, raid, 2, "A"))
	assert.ErrorIs(t, e.Assign(ctx, st, raid, 2, "B"), model.ErrSlotConflict)
	assert.ErrorIs(t, e.Assign(ctx, st, raid, 3, "A"), model.ErrSlotConflict)

	raid.Signup("B").Unavailable = true
	assert.ErrorIs(t, e.Assign(ctx, st, raid, 3, "B"), model.ErrClassMismatch)

	got := reload(t, st, raid)
	assert.Equal(t, "A", got.Slots[2].AssignedPlayerID)
	assert.True(t, got.Slots[3].Empty())
}

func TestOverrideVacatesSlot(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "warrior")
	require.NoError(t, e.Assign(ctx, st, raid, 0, "A"))

	assert.ErrorIs(t, e.Override(ctx, st, raid, 0, []string{"bard"}), model.ErrValidation)
	require.NoError(t, e.Override(ctx, st, raid, 0, []string{"mage", "warlock"}))

	got := reload(t, st, raid)
	assert.True(t, got.Slots[0].Empty())
	assert.True(t, got.Slots[0].Custom)
	assert.Equal(t, model.NewTagSet("mage", "warlock"), got.Slots[0].AllowedClasses)
}

func TestUnassignRestoresDefaultsUnlessCustom(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	signUp(t, st, raid, "A", "warrior")
	signUp(t, st, raid, "B", "mage")

	require.NoError(t, e.Assign(ctx, st, raid, 0, "A"))
	require.NoError(t, e.Unassign(ctx, st, raid, 0, true))
	assert.True(t, raid.Slots[0].Empty())

	require.NoError(t, e.Override(ctx, st, raid, 1, []string{"mage"}))
	require.NoError(t, e.Assign(ctx, st, raid, 1, "B"))
	require.NoError(t, e.Unassign(ctx, st, raid, 1, true))

	got := reload(t, st, raid)
	assert.True(t, got.Slots[1].Empty())
	assert.Equal(t, model.NewTagSet("mage"), got.Slots[1].AllowedClasses)
	assert.Equal(t, Customized, StateOf(got))
}

func TestAssignedSlotsRespectInvariant(t *testing.T) {
	ctx := context.Background()
	st, e, raid := setup(t)
	require.NoError(t, e.Enable(ctx, st, raid))
	players := map[string]string{"A": "warrior", "B": "priest", "C": "mage", "D": "druid", "E": "rogue"}
	for p, class := range players {
		signUp(t, st, raid, p, class)
		_, _ = e.AutoAssign(ctx, st, raid, p, class)
	}

	got := reload(t, st, raid)
	for _, s := range got.Slots {
		if s.Empty() {
			continue
		}
		signup := got.Signup(s.AssignedPlayerID)
		require.NotNil(t, signup)
		assert.False(t, signup.Unavailable)
		assert.True(t, s.AllowedClasses.Intersects(signup.ClassTags))
	}
}
