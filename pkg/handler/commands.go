package handler

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/coordinator"
	"github.com/sokdak/raid-bot/pkg/discord"
	"github.com/sokdak/raid-bot/pkg/timezone"
)

const commandName = "raid"

// Commands describes the /raid command tree.
func Commands(c *catalog.Catalog) []*discordgo.ApplicationCommand {
	raidOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionInteger, Name: "raid", Description: "Raid number, shown in the post footer", Required: true, MinValue: ptr(1.0),
	}
	slotOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionInteger, Name: "slot", Description: "Roster slot number", Required: true, MinValue: ptr(1.0),
	}
	playerOpt := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type: discordgo.ApplicationCommandOptionUser, Name: "player", Description: "Player, yourself if omitted", Required: required,
		}
	}
	classChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(c.Classes()))
	for _, cl := range c.Classes() {
		classChoices = append(classChoices, &discordgo.ApplicationCommandOptionChoice{Name: cl.Name, Value: cl.Tag})
	}

	sub := func(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        name,
			Description: desc,
			Options:     opts,
		}
	}

	return []*discordgo.ApplicationCommand{{
		Name:        commandName,
		Description: "Schedule and organize raids",
		Options: []*discordgo.ApplicationCommandOption{
			sub("schedule", "Schedule a raid in this channel",
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Raid name", Required: true, MaxLength: 100},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "time", Description: "Start as " + timezone.InputLayout + " in your time zone", Required: true},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "tier", Description: "Content tier"},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "aim", Description: "What the raid is going for", MaxLength: 200},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "roster", Description: "Start with the class roster"},
			),
			sub("assign", "Seat a player in a roster slot", raidOpt, slotOpt, playerOpt(true)),
			sub("autoassign", "Seat a player in the first slot that fits the class", raidOpt,
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "class", Description: "Class to play", Required: true, Choices: classChoices},
				playerOpt(false),
			),
			sub("unassign", "Vacate a roster slot", raidOpt, slotOpt),
			sub("override", "Change the classes a slot accepts", raidOpt, slotOpt,
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "classes", Description: "Comma separated classes", Required: true},
			),
			sub("roster", "Turn the class roster on or off", raidOpt,
				&discordgo.ApplicationCommandOption{
					Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "enable or disable", Required: true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "enable", Value: string(coordinator.RosterEnable)},
						{Name: "disable", Value: string(coordinator.RosterDisable)},
					},
				},
			),
			sub("aim", "Set what the raid is going for", raidOpt,
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Aim, empty to clear", MaxLength: 200},
			),
			sub("delete", "Delete a raid and its post", raidOpt),
			sub("view", "Show a raid in your own time zone", raidOpt),
			sub("timezone", "Set the time zone used for your times",
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: "zone", Description: "IANA zone such as Europe/Berlin", Required: true},
				&discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionBoolean, Name: "server", Description: "Set the server default instead (admins)"},
			),
		},
	}}
}

// RegisterRaidCommands creates the commands, in guildID only when set.
func (h *Raid) RegisterRaidCommands(dg *discordgo.Session, guildID string) error {
	for _, cmd := range Commands(h.catalog) {
		created, err := dg.ApplicationCommandCreate(dg.State.User.ID, guildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%v' command: %w", cmd.Name, err)
		}
		h.commands = append(h.commands, created)
		h.log.WithField("command", cmd.Name).Info("registered command")
	}
	return nil
}

func (h *Raid) UnregisterCommands(dg *discordgo.Session, guildID string) {
	for _, cmd := range h.commands {
		if err := dg.ApplicationCommandDelete(dg.State.User.ID, guildID, cmd.ID); err != nil {
			h.log.WithError(err).WithField("command", cmd.Name).Warn("cannot delete command")
		}
	}
	h.commands = nil
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func (o options) string(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) int(name string) int {
	if opt, ok := o[name]; ok {
		return int(opt.IntValue())
	}
	return 0
}

func (o options) bool(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

func (o options) user(name string) string {
	if opt, ok := o[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (h *Raid) commandHandler(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	subcommand := data.Options[0]
	opts := make(options, len(subcommand.Options))
	for _, o := range subcommand.Options {
		opts[o.Name] = o
	}

	log := h.log.WithFields(logrus.Fields{"subcommand": subcommand.Name, "guild_id": i.GuildID})
	if err := deferEphemeral(s, i.Interaction); err != nil {
		log.WithError(err).Warn("failed to acknowledge command")
		return
	}

	actor := h.actor(i)
	reply, err := h.runCommand(s, i, subcommand.Name, opts, actor, data.Resolved)
	if err != nil {
		log.WithError(err).Debug("command failed")
		editResponse(s, i.Interaction, userMessage(err))
		return
	}
	if reply != "" {
		editResponse(s, i.Interaction, reply)
	}
}

func (h *Raid) runCommand(s *discordgo.Session, i *discordgo.InteractionCreate, name string, opts options, actor coordinator.Actor, resolved *discordgo.ApplicationCommandInteractionDataResolved) (string, error) {
	raidID := uint(opts.int("raid"))
	slot := opts.int("slot") - 1

	switch name {
	case "schedule":
		return h.schedule(s, i, opts, actor)
	case "assign":
		playerID := opts.user("player")
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindAssign, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{PlayerID: playerID, SlotIndex: slot},
		})
		return fmt.Sprintf("Seated <@%s> in slot %d.", playerID, slot+1), err
	case "autoassign":
		playerID := opts.user("player")
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindAutoAssign, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{PlayerID: playerID, PlayerName: resolvedName(resolved, playerID), Class: opts.string("class")},
		})
		return "Seated in the first free slot for " + opts.string("class") + ".", err
	case "unassign":
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindUnassign, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{SlotIndex: slot},
		})
		return fmt.Sprintf("Slot %d is free again.", slot+1), err
	case "override":
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindConfigureRoster, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{Roster: coordinator.RosterOverride, SlotIndex: slot, ClassTags: h.classList(opts.string("classes"))},
		})
		return fmt.Sprintf("Slot %d now accepts %s.", slot+1, opts.string("classes")), err
	case "roster":
		action := coordinator.RosterAction(opts.string("action"))
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindConfigureRoster, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{Roster: action},
		})
		return fmt.Sprintf("Roster %sd.", action), err
	case "aim":
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindEditAim, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{Aim: opts.string("text")},
		})
		return "Aim updated.", err
	case "delete":
		_, err := h.coord.HandleEvent(h.ctx, coordinator.Event{Kind: coordinator.KindDelete, RaidID: raidID, Actor: actor})
		return "Raid deleted.", err
	case "view":
		in, err := h.coord.View(h.ctx, raidID, actor.ID)
		if err != nil {
			return "", err
		}
		embeds := []*discordgo.MessageEmbed{discord.Embed(in)}
		if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
			return "", err
		}
		return "", nil
	case "timezone":
		server := opts.bool("server")
		if err := h.coord.SetZone(h.ctx, actor, i.GuildID, opts.string("zone"), server); err != nil {
			return "", err
		}
		if server {
			return "Server time zone set to " + opts.string("zone") + ".", nil
		}
		return "Your time zone is now " + opts.string("zone") + ".", nil
	}
	return "", fmt.Errorf("unknown subcommand %q", name)
}

func (h *Raid) schedule(s *discordgo.Session, i *discordgo.InteractionCreate, opts options, actor coordinator.Actor) (string, error) {
	in, err := h.coord.Schedule(h.ctx, coordinator.ScheduleRequest{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Organizer: actor,
		Name:      opts.string("name"),
		Tier:      opts.string("tier"),
		Aim:       opts.string("aim"),
		Time:      opts.string("time"),
		Roster:    opts.bool("roster"),
	})
	if err != nil {
		return "", err
	}

	msg, err := s.ChannelMessageSendComplex(i.ChannelID, discord.Message(in))
	if err != nil {
		h.log.WithError(err).WithField("raid_id", in.RaidID).Warn("failed to publish raid post")
		return fmt.Sprintf("Raid #%d was scheduled but its post could not be published.", in.RaidID), nil
	}
	if err := h.coord.AttachPost(h.ctx, in.RaidID, msg.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Raid #%d scheduled.", in.RaidID), nil
}

// classList maps free text such as "Warrior, druid" to class tags. Unknown
// words are passed through so the roster engine can reject them.
func (h *Raid) classList(text string) []string {
	var tags []string
	for _, word := range strings.Split(text, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		if tag, ok := h.catalog.TagForName(word); ok {
			tags = append(tags, tag)
			continue
		}
		tags = append(tags, strings.ToLower(word))
	}
	return tags
}

func resolvedName(r *discordgo.ApplicationCommandInteractionDataResolved, userID string) string {
	if r == nil || userID == "" {
		return ""
	}
	return displayName(r.Members[userID], r.Users[userID])
}

func ptr[T any](v T) *T { return &v }
