// Package handler turns Discord interactions into raid coordinator calls.
package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/await"
	"github.com/sokdak/raid-bot/pkg/cache"
	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/coordinator"
	"github.com/sokdak/raid-bot/pkg/model"
)

type Raid struct {
	coord        *coordinator.Coordinator
	catalog      *catalog.Catalog
	roles        *cache.Roles
	replies      *await.Replies
	replyTimeout time.Duration

	ctx      context.Context
	commands []*discordgo.ApplicationCommand
	removers []func()
	log      *logrus.Entry
}

func NewRaid(coord *coordinator.Coordinator, c *catalog.Catalog, roles *cache.Roles, replies *await.Replies, replyTimeout time.Duration) *Raid {
	return &Raid{
		coord:        coord,
		catalog:      c,
		roles:        roles,
		replies:      replies,
		replyTimeout: replyTimeout,
		ctx:          context.Background(),
		log:          logrus.WithField("component", "handler"),
	}
}

// RaidInit adds the interaction and reply watchers. ctx bounds the work
// started by interactions, such as waiting for a free-text reply.
func (h *Raid) RaidInit(ctx context.Context, dg *discordgo.Session) {
	h.ctx = ctx
	h.removers = append(h.removers,
		dg.AddHandler(h.interactionHandler),
		dg.AddHandler(h.replyHandler),
	)
}

func (h *Raid) RaidFinalize() {
	for _, remove := range h.removers {
		remove()
	}
	h.removers = nil
}

func (h *Raid) interactionHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.GuildID == "" {
		respondEphemeral(s, i.Interaction, "Raids can only be managed inside a server.")
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.Name != commandName || len(data.Options) == 0 {
			return
		}
		h.commandHandler(s, i, data)
	case discordgo.InteractionMessageComponent:
		h.componentHandler(s, i, i.MessageComponentData())
	}
}

// replyHandler hands free-text replies to whoever is waiting for them.
func (h *Raid) replyHandler(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if h.replies.Offer(m.ChannelID, m.Author.ID, m.Content) {
		h.log.WithFields(logrus.Fields{"channel_id": m.ChannelID, "user_id": m.Author.ID}).Debug("reply consumed")
	}
}

// actor describes the member behind an interaction.
func (h *Raid) actor(i *discordgo.InteractionCreate) coordinator.Actor {
	return actorFrom(i.Member, h.roles.Names(i.GuildID, i.Member.Roles), h.catalog)
}

func actorFrom(m *discordgo.Member, roleNames []string, c *catalog.Catalog) coordinator.Actor {
	a := coordinator.Actor{
		ID:          m.User.ID,
		DisplayName: displayName(m, m.User),
		Roles:       roleNames,
		Admin:       m.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, name := range roleNames {
		if tag, ok := c.TagForName(name); ok {
			a.HeldClasses = append(a.HeldClasses, tag)
		}
	}
	return a
}

func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// userMessage turns a coordinator error into something safe to show.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrStore):
		return "Something went wrong while saving, please try again."
	case errors.Is(err, model.ErrPermission):
		return "Only the organizer, a raid leader or an admin can do that."
	}
	msg := err.Error()
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return msg + "."
}

func respondEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to respond to interaction")
	}
}

func deferEphemeral(s *discordgo.Session, i *discordgo.Interaction) error {
	return s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func editResponse(s *discordgo.Session, i *discordgo.Interaction, content string) {
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}); err != nil {
		logrus.WithError(err).Warn("failed to edit interaction response")
	}
}

func followupEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_, err := s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to send followup")
	}
}
