package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Gorm {
	t.Helper()
	g, err := Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func createRaid(t *testing.T, g *Gorm, scheduled int64) *model.Raid {
	t.Helper()
	raid := &model.Raid{GuildID: "g1", ChannelID: "c1", Name: "Molten Core", ScheduledTime: scheduled}
	require.NoError(t, g.UpsertRaid(context.Background(), raid))
	require.NotZero(t, raid.ID)
	return raid
}

func TestUpsertSignupKeepsOneRowPerPlayer(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)
	raid := createRaid(t, g, 1000)

	first := &model.Signup{RaidID: raid.ID, PlayerID: "p1", DisplayName: "Alice", ClassTags: model.NewTagSet("mage"), SignupTime: time.Unix(10, 0)}
	require.NoError(t, g.UpsertSignup(ctx, first))

	second := *first
	second.ClassTags = model.NewTagSet("mage", "priest")
	require.NoError(t, g.UpsertSignup(ctx, &second))

	got, err := g.GetRaid(ctx, raid.ID)
	require.NoError(t, err)
	require.Len(t, got.Signups, 1)
	assert.Equal(t, model.NewTagSet("mage", "priest"), got.Signups[0].ClassTags)
}

func TestUpsertSlotIndexZero(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)
	raid := createRaid(t, g, 1000)

	slot := &model.Slot{RaidID: raid.ID, SlotIndex: 0, AllowedClasses: model.NewTagSet("warrior")}
	require.NoError(t, g.UpsertSlot(ctx, slot))
	slot.AssignedPlayerID = "p1"
	require.NoError(t, g.UpsertSlot(ctx, slot))

	got, err := g.GetRaid(ctx, raid.ID)
	require.NoError(t, err)
	require.Len(t, got.Slots, 1)
	assert.Equal(t, "p1", got.Slots[0].AssignedPlayerID)
}

func TestDeleteRaidCascades(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)
	raid := createRaid(t, g, 1000)
	require.NoError(t, g.UpsertSignup(ctx, &model.Signup{RaidID: raid.ID, PlayerID: "p1"}))
	require.NoError(t, g.UpsertSlot(ctx, &model.Slot{RaidID: raid.ID, SlotIndex: 0}))

	require.NoError(t, g.DeleteRaid(ctx, raid.ID))

	_, err := g.GetRaid(ctx, raid.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	var signups, slots int64
	require.NoError(t, g.db.Model(&model.Signup{}).Where("raid_id = ?", raid.ID).Count(&signups).Error)
	require.NoError(t, g.db.Model(&model.Slot{}).Where("raid_id = ?", raid.ID).Count(&slots).Error)
	assert.Zero(t, signups)
	assert.Zero(t, slots)

	assert.ErrorIs(t, g.DeleteRaid(ctx, raid.ID), model.ErrNotFound)
}

func TestSelectRaidsBefore(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)
	early := createRaid(t, g, 100)
	createRaid(t, g, 200)

	raids, err := g.SelectRaidsBefore(ctx, 200)
	require.NoError(t, err)
	require.Len(t, raids, 1)
	assert.Equal(t, early.ID, raids[0].ID)
}

func TestAtomicallyRollsBack(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)
	raid := createRaid(t, g, 100)
	boom := errors.New("boom")

	err := g.Atomically(ctx, func(tx RaidStore) error {
		if err := tx.UpsertSlot(ctx, &model.Slot{RaidID: raid.ID, SlotIndex: 0}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := g.GetRaid(ctx, raid.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Slots)
}

func TestZonePreferences(t *testing.T) {
	ctx := context.Background()
	g := openTestStore(t)

	zone, err := g.Zone(ctx, model.ZoneScopeUser, "u1")
	require.NoError(t, err)
	assert.Empty(t, zone)

	require.NoError(t, g.SetZone(ctx, &model.ZonePreference{Scope: model.ZoneScopeUser, OwnerID: "u1", Zone: "Europe/Berlin"}))
	require.NoError(t, g.SetZone(ctx, &model.ZonePreference{Scope: model.ZoneScopeUser, OwnerID: "u1", Zone: "Asia/Seoul"}))

	zone, err = g.Zone(ctx, model.ZoneScopeUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", zone)

	zone, err = g.Zone(ctx, model.ZoneScopeGuild, "u1")
	require.NoError(t, err)
	assert.Empty(t, zone)
}
