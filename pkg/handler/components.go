package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/sokdak/raid-bot/pkg/await"
	"github.com/sokdak/raid-bot/pkg/coordinator"
	"github.com/sokdak/raid-bot/pkg/discord"
	"github.com/sokdak/raid-bot/pkg/timezone"
)

func (h *Raid) componentHandler(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.MessageComponentInteractionData) {
	action, raidID, ok := discord.ParseCustomID(data.CustomID)
	if !ok {
		return
	}
	actor := h.actor(i)
	log := h.log.WithFields(logrus.Fields{"action": action, "raid_id": raidID, "actor": actor.ID})

	switch action {
	case discord.ActionSignUp:
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    "Which classes can you bring?",
				Components: discord.ClassMenu(raidID, h.catalog.Classes()),
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			log.WithError(err).Warn("failed to send class menu")
		}
	case discord.ActionClasses:
		// the menu lives on an ephemeral message which is replaced by the outcome
		h.postEvent(s, i, log, discordgo.InteractionResponseDeferredMessageUpdate, coordinator.Event{
			Kind: coordinator.KindSignUp, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{ClassTags: data.Values},
		}, "Signed up as "+strings.Join(data.Values, ", ")+".")
	case discord.ActionSignUpAll:
		h.postEvent(s, i, log, discordgo.InteractionResponseDeferredChannelMessageWithSource, coordinator.Event{
			Kind: coordinator.KindSignUpAll, RaidID: raidID, Actor: actor,
		}, "Signed up with every class role you hold.")
	case discord.ActionCancel:
		h.postEvent(s, i, log, discordgo.InteractionResponseDeferredChannelMessageWithSource, coordinator.Event{
			Kind: coordinator.KindCancel, RaidID: raidID, Actor: actor,
		}, "Marked as unavailable.")
	case discord.ActionEditTime:
		h.editTime(s, i, log, raidID, actor)
	}
}

// postEvent acknowledges the interaction, runs ev and reports the outcome
// privately to the actor. The post itself is updated by the coordinator.
func (h *Raid) postEvent(s *discordgo.Session, i *discordgo.InteractionCreate, log *logrus.Entry, ack discordgo.InteractionResponseType, ev coordinator.Event, success string) {
	resp := &discordgo.InteractionResponse{Type: ack}
	if ack == discordgo.InteractionResponseDeferredChannelMessageWithSource {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		log.WithError(err).Warn("failed to acknowledge interaction")
		return
	}

	text := success
	if _, err := h.coord.HandleEvent(h.ctx, ev); err != nil {
		log.WithError(err).Debug("raid event failed")
		text = userMessage(err)
	}
	components := []discordgo.MessageComponent{}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &text, Components: &components}); err != nil {
		log.WithError(err).Warn("failed to report event outcome")
	}
}

// editTime asks for the new start time as the actor's next message in the
// channel and applies it, or gives up after the reply timeout.
func (h *Raid) editTime(s *discordgo.Session, i *discordgo.InteractionCreate, log *logrus.Entry, raidID uint, actor coordinator.Actor) {
	pending := h.replies.Expect(i.ChannelID, actor.ID, h.replyTimeout)
	respondEphemeral(s, i.Interaction, fmt.Sprintf(
		"Reply in this channel with the new start time as %s in your time zone within %s.",
		timezone.InputLayout, h.replyTimeout))

	go func() {
		text, err := pending.Wait(h.ctx)
		if errors.Is(err, await.ErrTimeout) {
			followupEphemeral(s, i.Interaction, "No new time received, the raid was left unchanged.")
			return
		}
		if err != nil {
			log.WithError(err).Debug("stopped waiting for a reply")
			return
		}

		_, err = h.coord.HandleEvent(h.ctx, coordinator.Event{
			Kind: coordinator.KindEditTime, RaidID: raidID, Actor: actor,
			Payload: coordinator.Payload{Time: text},
		})
		if err != nil {
			followupEphemeral(s, i.Interaction, userMessage(err))
			return
		}
		followupEphemeral(s, i.Interaction, "Start time moved to "+strings.TrimSpace(text)+".")
	}()
}
