// Package cache keeps guild role names around so interactions can be turned
// into actors without a REST round trip each time.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// RoleSource fetches the roles of a guild. *discordgo.Session satisfies it.
type RoleSource interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

type Roles struct {
	src RoleSource

	mu     sync.Mutex
	guilds map[string]map[string]string // guild id -> role id -> name
	log    *logrus.Entry
}

func NewRoles(src RoleSource) *Roles {
	return &Roles{
		src:    src,
		guilds: make(map[string]map[string]string),
		log:    logrus.WithField("component", "role-cache"),
	}
}

// Names resolves role ids of guildID to names. A guild seen for the first
// time is fetched on the spot; unknown ids are skipped.
func (r *Roles) Names(guildID string, roleIDs []string) []string {
	names, ok := r.guild(guildID)
	if !ok {
		if err := r.Renew(guildID); err != nil {
			r.log.WithError(err).WithField("guild_id", guildID).Warn("role lookup failed")
			return nil
		}
		names, _ = r.guild(guildID)
	}

	out := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (r *Roles) guild(guildID string) (map[string]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names, ok := r.guilds[guildID]
	return names, ok
}

// Renew refetches the roles of one guild.
func (r *Roles) Renew(guildID string) error {
	roles, err := r.src.GuildRoles(guildID)
	if err != nil {
		return fmt.Errorf("error fetching guild roles of %s: %w", guildID, err)
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}

	r.mu.Lock()
	r.guilds[guildID] = names
	r.mu.Unlock()
	return nil
}

// Forget drops a guild, e.g. after the bot left it.
func (r *Roles) Forget(guildID string) {
	r.mu.Lock()
	delete(r.guilds, guildID)
	r.mu.Unlock()
}

// RunEvictionPolicy refreshes every known guild each period until ctx ends.
func (r *Roles) RunEvictionPolicy(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				for _, id := range r.known() {
					if err := r.Renew(id); err != nil {
						r.log.WithError(err).Warn("error renewing role cache")
					}
				}
			}
		}
	}()
}

func (r *Roles) known() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.guilds))
	for id := range r.guilds {
		ids = append(ids, id)
	}
	return ids
}
