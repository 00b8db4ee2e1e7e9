package render

import (
	"testing"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/paginate"
	"github.com/sokdak/raid-bot/pkg/roster"
	"github.com/sokdak/raid-bot/pkg/timezone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	r, err := timezone.New("UTC")
	require.NoError(t, err)
	return NewBuilder(catalog.Default(), paginate.New(6, 1024), r)
}

func TestBuild(t *testing.T) {
	b := newBuilder(t)
	raid := &model.Raid{
		ID:            3,
		Name:          "Naxx",
		ScheduledTime: 1767297600,
		RosterEnabled: true,
		Signups: []model.Signup{
			{PlayerID: "a", DisplayName: "Alice", ClassTags: model.NewTagSet("mage")},
			{PlayerID: "b", DisplayName: "Bob", Unavailable: true},
		},
		Slots: []model.Slot{
			{SlotIndex: 0, AllowedClasses: model.NewTagSet("warrior")},
			{SlotIndex: 1, AllowedClasses: model.NewTagSet("mage"), AssignedPlayerID: "a", Custom: true},
		},
	}

	in := b.Build(raid, "Europe/Berlin")

	assert.Equal(t, uint(3), in.RaidID)
	assert.Equal(t, roster.Customized, in.RosterState)
	require.Len(t, in.Roster, 2)
	assert.Equal(t, "primary tank", in.Roster[0].Role)
	assert.Equal(t, "custom", in.Roster[1].Role)
	assert.Equal(t, "Alice", in.Roster[1].Player)
	assert.Equal(t, 1, in.AvailableCount)
	assert.Equal(t, 1, in.UnavailableCount)
	assert.Equal(t, "🔥 Alice", in.Available[0].Text())
	assert.Equal(t, "Bob", in.Unavailable[0].Text())
	assert.Contains(t, in.Times.Server, "CET")
}

func TestBuildWithoutSignups(t *testing.T) {
	in := newBuilder(t).Build(&model.Raid{ID: 1}, "")
	require.Len(t, in.Available, 1)
	assert.Equal(t, paginate.Placeholder, in.Available[0].Text())
	assert.Empty(t, in.Roster)
	assert.Equal(t, roster.Free, in.RosterState)
}

func TestRemoved(t *testing.T) {
	in := Removed(&model.Raid{ID: 9, ChannelID: "c", MessageID: "m"})
	assert.True(t, in.Deleted)
	assert.Equal(t, "m", in.MessageID)
}
