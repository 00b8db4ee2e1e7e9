package store

import (
	"context"

	"github.com/sokdak/raid-bot/pkg/model"
)

// Writer is the subset of RaidStore used by the ledger and roster engine.
type Writer interface {
	UpsertRaid(ctx context.Context, raid *model.Raid) error
	UpsertSignup(ctx context.Context, signup *model.Signup) error
	UpsertSlot(ctx context.Context, slot *model.Slot) error
	DeleteSlots(ctx context.Context, raidID uint) error
	DeleteRaid(ctx context.Context, raidID uint) error
}

// RaidStore persists raids with their signups and slots. Every call is atomic;
// Atomically groups several calls into one transaction.
type RaidStore interface {
	Writer

	// GetRaid loads a raid with signups (signup order) and slots (index order).
	GetRaid(ctx context.Context, raidID uint) (*model.Raid, error)
	// SelectRaidsBefore lists raids scheduled strictly before ts, without children.
	SelectRaidsBefore(ctx context.Context, ts int64) ([]model.Raid, error)
	ListGuildRaids(ctx context.Context, guildID string) ([]model.Raid, error)

	Zone(ctx context.Context, scope model.ZoneScope, ownerID string) (string, error)
	SetZone(ctx context.Context, pref *model.ZonePreference) error

	Atomically(ctx context.Context, fn func(tx RaidStore) error) error
}
