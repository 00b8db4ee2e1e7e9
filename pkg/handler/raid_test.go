package handler

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFrom(t *testing.T) {
	c := catalog.Default()
	m := &discordgo.Member{
		User:        &discordgo.User{ID: "u1", Username: "alice_w", GlobalName: "Alice"},
		Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages,
	}

	a := actorFrom(m, []string{"Mage", "Raid Leader", "Rogue"}, c)
	assert.Equal(t, "u1", a.ID)
	assert.Equal(t, "Alice", a.DisplayName)
	assert.True(t, a.Admin)
	assert.Equal(t, []string{"mage", "rogue"}, a.HeldClasses)
	assert.Equal(t, []string{"Mage", "Raid Leader", "Rogue"}, a.Roles)

	m.Nick = "Ali"
	m.Permissions = discordgo.PermissionSendMessages
	a = actorFrom(m, nil, c)
	assert.Equal(t, "Ali", a.DisplayName)
	assert.False(t, a.Admin)
	assert.Empty(t, a.HeldClasses)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "bob", displayName(nil, &discordgo.User{Username: "bob"}))
	assert.Equal(t, "", displayName(nil, nil))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", userMessage(nil))
	assert.Equal(t, "Something went wrong while saving, please try again.",
		userMessage(fmt.Errorf("%w: signup failed", model.ErrStore)))
	assert.Contains(t, userMessage(fmt.Errorf("%w: delete", model.ErrPermission)), "organizer")
	assert.Equal(t, "No slot available: no empty slot allows rogue.",
		userMessage(fmt.Errorf("%w: no empty slot allows rogue", model.ErrNoSlotAvailable)))
}

func TestClassList(t *testing.T) {
	h := &Raid{catalog: catalog.Default()}
	assert.Equal(t, []string{"warrior", "druid", "bard"}, h.classList(" Warrior, druid ,, Bard"))
	assert.Empty(t, h.classList(""))
}

func TestCommands(t *testing.T) {
	cmds := Commands(catalog.Default())
	require.Len(t, cmds, 1)
	assert.Equal(t, commandName, cmds[0].Name)

	var names []string
	for _, o := range cmds[0].Options {
		names = append(names, o.Name)
		assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, o.Type)
	}
	assert.Equal(t, []string{"schedule", "assign", "autoassign", "unassign", "override", "roster", "aim", "delete", "view", "timezone"}, names)
}

func TestOptions(t *testing.T) {
	opts := options{
		"raid":   {Name: "raid", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(4)},
		"name":   {Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "MC"},
		"roster": {Name: "roster", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
		"player": {Name: "player", Type: discordgo.ApplicationCommandOptionUser, Value: "u9"},
	}
	assert.Equal(t, 4, opts.int("raid"))
	assert.Equal(t, "MC", opts.string("name"))
	assert.True(t, opts.bool("roster"))
	assert.Equal(t, "u9", opts.user("player"))
	assert.Equal(t, 0, opts.int("slot"))
	assert.Equal(t, "", opts.string("tier"))
	assert.False(t, opts.bool("server"))
}
