// Package discord adapts render instructions and delivery ports to Discord
// messages.
package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/sokdak/raid-bot/pkg/delivery"
	"github.com/sokdak/raid-bot/pkg/render"
)

// Session is the part of *discordgo.Session the adapters use.
type Session interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Posts locates raid posts. It implements delivery.PostLocator and
// delivery.NotificationSink.
type Posts struct {
	s Session
}

func NewPosts(s Session) *Posts {
	return &Posts{s: s}
}

func (p *Posts) Post(channelID, messageID string) delivery.ChatPostHandle {
	return &Post{posts: p, ChannelID: channelID, MessageID: messageID}
}

func (p *Posts) Send(ctx context.Context, channelID, text string) error {
	_, err := p.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

type Post struct {
	posts     *Posts
	ChannelID string
	MessageID string
}

func (p *Post) Edit(ctx context.Context, in *render.Instruction) error {
	msg := Message(in)
	edit := discordgo.NewMessageEdit(p.ChannelID, p.MessageID).SetEmbeds(msg.Embeds)
	edit.Components = &msg.Components
	_, err := p.posts.s.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (p *Post) Delete(ctx context.Context) error {
	err := p.posts.s.ChannelMessageDelete(p.ChannelID, p.MessageID, discordgo.WithContext(ctx))
	if gone(err) {
		return nil
	}
	return err
}

// Exists reports false only when Discord says the message or its channel is
// gone; any other failure is returned as an error.
func (p *Post) Exists(ctx context.Context) (bool, error) {
	_, err := p.posts.s.ChannelMessage(p.ChannelID, p.MessageID, discordgo.WithContext(ctx))
	switch {
	case err == nil:
		return true, nil
	case gone(err):
		return false, nil
	default:
		return false, err
	}
}

func gone(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
