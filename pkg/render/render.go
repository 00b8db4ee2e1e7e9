// Package render turns a raid into a transport neutral render instruction.
package render

import (
	"strings"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/ledger"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/paginate"
	"github.com/sokdak/raid-bot/pkg/roster"
	"github.com/sokdak/raid-bot/pkg/timezone"
)

type SlotLine struct {
	Index    int
	Role     string
	Allowed  string
	PlayerID string
	Player   string
}

type Instruction struct {
	RaidID    uint
	GuildID   string
	ChannelID string
	MessageID string
	Deleted   bool

	Name          string
	Tier          string
	Aim           string
	OrganizerID   string
	ScheduledTime int64
	Times         timezone.Times

	RosterState roster.State
	Roster      []SlotLine

	Available        []paginate.Block
	Unavailable      []paginate.Block
	AvailableCount   int
	UnavailableCount int
}

type Builder struct {
	catalog   *catalog.Catalog
	paginator *paginate.Paginator
	resolver  *timezone.Resolver
}

func NewBuilder(c *catalog.Catalog, p *paginate.Paginator, r *timezone.Resolver) *Builder {
	return &Builder{catalog: c, paginator: p, resolver: r}
}

// Build renders the raid as seen in the guild's server time.
func (b *Builder) Build(raid *model.Raid, guildZone string) *Instruction {
	in := header(raid)
	in.Times = b.resolver.Format(raid.ScheduledTime, "", guildZone)
	in.RosterState = roster.StateOf(raid)

	if raid.RosterEnabled {
		for _, s := range raid.Slots {
			line := SlotLine{
				Index:    s.SlotIndex,
				Role:     b.catalog.SlotRole(s.SlotIndex),
				Allowed:  b.catalog.Glyphs(s.AllowedClasses),
				PlayerID: s.AssignedPlayerID,
			}
			if s.Custom {
				line.Role = "custom"
			}
			if su := raid.Signup(s.AssignedPlayerID); su != nil {
				line.Player = su.DisplayName
			}
			in.Roster = append(in.Roster, line)
		}
	}

	available := ledger.ListAvailable(raid)
	unavailable := ledger.ListUnavailable(raid)
	in.AvailableCount = len(available)
	in.UnavailableCount = len(unavailable)
	in.Available = b.paginator.Paginate(b.entries(available))
	in.Unavailable = b.paginator.Paginate(b.entries(unavailable))
	return in
}

// Removed renders a raid that no longer exists.
func Removed(raid *model.Raid) *Instruction {
	in := header(raid)
	in.Deleted = true
	return in
}

// Entry formats one signup as its class glyphs followed by the display name.
func (b *Builder) Entry(s model.Signup) string {
	glyphs := b.catalog.Glyphs(s.ClassTags)
	if glyphs == "" {
		return s.DisplayName
	}
	return strings.TrimSpace(glyphs + " " + s.DisplayName)
}

func (b *Builder) entries(signups []model.Signup) []string {
	out := make([]string, 0, len(signups))
	for _, s := range signups {
		out = append(out, b.Entry(s))
	}
	return out
}

func header(raid *model.Raid) *Instruction {
	return &Instruction{
		RaidID:        raid.ID,
		GuildID:       raid.GuildID,
		ChannelID:     raid.ChannelID,
		MessageID:     raid.MessageID,
		Name:          raid.Name,
		Tier:          raid.Tier,
		Aim:           raid.Aim,
		OrganizerID:   raid.OrganizerID,
		ScheduledTime: raid.ScheduledTime,
	}
}
