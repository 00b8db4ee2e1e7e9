package discord

import (
	"testing"
	"time"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
)

func rosteredRaid(t *testing.T, cat *catalog.Catalog) *model.Raid {
	t.Helper()
	raid := &model.Raid{
		ID:            7,
		GuildID:       "g1",
		ChannelID:     "c1",
		OrganizerID:   "org",
		Name:          "Molten Core",
		Tier:          "T1",
		ScheduledTime: time.Date(2026, 3, 5, 20, 0, 0, 0, time.UTC).Unix(),
		RosterEnabled: true,
	}
	for i := 0; i < cat.TemplateSize(); i++ {
		allowed, _ := cat.DefaultClasses(i)
		raid.Slots = append(raid.Slots, model.Slot{RaidID: 7, SlotIndex: i, AllowedClasses: allowed})
	}
	raid.Slots[0].AssignedPlayerID = "p1"
	for i, id := range []string{"p1", "p2", "p3"} {
		raid.PutSignup(model.Signup{
			RaidID:      7,
			PlayerID:    id,
			DisplayName: id,
			ClassTags:   model.NewTagSet("warrior"),
			SignupTime:  time.Unix(int64(i), 0),
		})
	}
	return raid
}
