package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/paginate"
	"github.com/sokdak/raid-bot/pkg/render"
	"github.com/sokdak/raid-bot/pkg/roster"
)

const (
	ActionSignUp    = "raid-signup"
	ActionSignUpAll = "raid-signup-all"
	ActionCancel    = "raid-cancel"
	ActionEditTime  = "raid-edit-time"
	ActionClasses   = "raid-classes"

	maxEmbedFields = 25
	colorRaid      = 0x3498db
	colorRoster    = 0xe67e22
)

// CustomID encodes a component action for a raid, e.g. "raid-signup_12".
func CustomID(action string, raidID uint) string {
	return fmt.Sprintf("%s_%d", action, raidID)
}

// ParseCustomID is the inverse of CustomID.
func ParseCustomID(id string) (string, uint, bool) {
	action, raw, ok := strings.Cut(id, "_")
	if !ok {
		return "", 0, false
	}
	raidID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || raidID == 0 {
		return "", 0, false
	}
	return action, uint(raidID), true
}

// Message renders a raid post.
func Message(in *render.Instruction) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{Embed(in)},
		Components: Buttons(in.RaidID),
	}
}

func Embed(in *render.Instruction) *discordgo.MessageEmbed {
	title := in.Name
	if in.Tier != "" {
		title = fmt.Sprintf("%s [%s]", in.Name, in.Tier)
	}

	var desc strings.Builder
	if in.Aim != "" {
		desc.WriteString(in.Aim + "\n\n")
	}
	if in.OrganizerID != "" {
		fmt.Fprintf(&desc, "Organized by <@%s>", in.OrganizerID)
	}

	e := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc.String(),
		Color:       colorRaid,
		Timestamp:   time.Unix(in.ScheduledTime, 0).UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Raid #%d", in.RaidID)},
	}
	if in.Deleted {
		e.Description = "This raid has been cancelled."
		return e
	}

	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Server time", Value: in.Times.Server, Inline: true})
	if in.Times.Viewer != "" && in.Times.Viewer != in.Times.Server {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Your time", Value: in.Times.Viewer, Inline: true})
	}
	if len(in.Times.Regions) > 0 {
		lines := make([]string, 0, len(in.Times.Regions))
		for _, r := range in.Times.Regions {
			lines = append(lines, fmt.Sprintf("%s: %s", r.Label, r.Text))
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Regions", Value: strings.Join(lines, "\n")})
	}

	if in.RosterState != roster.Free {
		e.Color = colorRoster
		e.Fields = append(e.Fields, rosterField(in))
	}
	e.Fields = append(e.Fields, blockFields("Available", in.AvailableCount, in.Available)...)
	e.Fields = append(e.Fields, blockFields("Unavailable", in.UnavailableCount, in.Unavailable)...)

	if len(e.Fields) > maxEmbedFields {
		e.Fields = e.Fields[:maxEmbedFields]
	}
	return e
}

func rosterField(in *render.Instruction) *discordgo.MessageEmbedField {
	name := "Roster"
	if in.RosterState == roster.Customized {
		name = "Roster (customized)"
	}
	lines := make([]string, 0, len(in.Roster))
	for _, s := range in.Roster {
		player := "-"
		if s.PlayerID != "" {
			player = "<@" + s.PlayerID + ">"
		}
		lines = append(lines, fmt.Sprintf("`%2d` %s %s %s", s.Index+1, s.Allowed, s.Role, player))
	}
	value := strings.Join(lines, "\n")
	if value == "" {
		value = paginate.Placeholder
	}
	return &discordgo.MessageEmbedField{Name: name, Value: value}
}

// blockFields lays the paginated blocks out as inline fields; only the first
// one carries the heading.
func blockFields(heading string, count int, blocks []paginate.Block) []*discordgo.MessageEmbedField {
	name := fmt.Sprintf("%s (%d)", heading, count)
	if len(blocks) == 0 {
		return []*discordgo.MessageEmbedField{{Name: name, Value: paginate.Placeholder}}
	}
	fields := make([]*discordgo.MessageEmbedField, 0, len(blocks))
	for i, b := range blocks {
		field := &discordgo.MessageEmbedField{Name: paginate.Placeholder, Value: b.Text(), Inline: true}
		if i == 0 {
			field.Name = name
		}
		fields = append(fields, field)
	}
	return fields
}

func Buttons(raidID uint) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Sign up",
					Style:    discordgo.PrimaryButton,
					CustomID: CustomID(ActionSignUp, raidID),
				},
				discordgo.Button{
					Label:    "Sign up with my roles",
					Style:    discordgo.SuccessButton,
					CustomID: CustomID(ActionSignUpAll, raidID),
				},
				discordgo.Button{
					Label:    "Can't make it",
					Style:    discordgo.DangerButton,
					CustomID: CustomID(ActionCancel, raidID),
				},
				discordgo.Button{
					Label:    "Edit time",
					Style:    discordgo.SecondaryButton,
					CustomID: CustomID(ActionEditTime, raidID),
				},
			},
		},
	}
}

// ClassMenu lets a player pick one or more classes to sign up with.
func ClassMenu(raidID uint, classes []catalog.Class) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(classes))
	for _, c := range classes {
		options = append(options, discordgo.SelectMenuOption{
			Label: strings.TrimSpace(c.Glyph + " " + c.Name),
			Value: c.Tag,
		})
	}
	minValues := 1
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    CustomID(ActionClasses, raidID),
					Placeholder: "Pick the classes you can bring",
					MinValues:   &minValues,
					MaxValues:   len(options),
					Options:     options,
				},
			},
		},
	}
}
