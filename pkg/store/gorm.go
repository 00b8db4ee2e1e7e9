package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/sokdak/raid-bot/pkg/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Gorm struct {
	db *gorm.DB
}

var _ RaidStore = (*Gorm)(nil)

// Open opens (or creates) the sqlite database at path and migrates the schema.
func Open(path string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; serializing on one connection also keeps
	// in-memory databases shared between calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	g := New(db)
	if err := g.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return g, nil
}

func New(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Migrate() error {
	for _, m := range []interface{}{&model.Raid{}, &model.Signup{}, &model.Slot{}, &model.ZonePreference{}} {
		if err := g.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get db connection for close: %w", err)
	}
	return sqlDB.Close()
}

func (g *Gorm) GetRaid(ctx context.Context, raidID uint) (*model.Raid, error) {
	var raid model.Raid
	err := g.db.WithContext(ctx).
		Preload("Signups", func(db *gorm.DB) *gorm.DB {
			return db.Order("signup_time, player_id")
		}).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("slot_index")
		}).
		First(&raid, raidID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", model.ErrNotFound, raidID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get raid %d: %w", model.ErrStore, raidID, err)
	}
	return &raid, nil
}

func (g *Gorm) SelectRaidsBefore(ctx context.Context, ts int64) ([]model.Raid, error) {
	var raids []model.Raid
	err := g.db.WithContext(ctx).Where("scheduled_time < ?", ts).Order("scheduled_time, id").Find(&raids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: select raids before %d: %w", model.ErrStore, ts, err)
	}
	return raids, nil
}

func (g *Gorm) ListGuildRaids(ctx context.Context, guildID string) ([]model.Raid, error) {
	var raids []model.Raid
	err := g.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("scheduled_time, id").Find(&raids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list raids of guild %s: %w", model.ErrStore, guildID, err)
	}
	return raids, nil
}

func (g *Gorm) UpsertRaid(ctx context.Context, raid *model.Raid) error {
	tx := g.db.WithContext(ctx).Omit(clause.Associations)
	var err error
	if raid.ID == 0 {
		err = tx.Create(raid).Error
	} else {
		err = tx.Save(raid).Error
	}
	if err != nil {
		return fmt.Errorf("%w: upsert raid: %w", model.ErrStore, err)
	}
	return nil
}

func (g *Gorm) UpsertSignup(ctx context.Context, signup *model.Signup) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(signup).Error
	if err != nil {
		return fmt.Errorf("%w: upsert signup %d/%s: %w", model.ErrStore, signup.RaidID, signup.PlayerID, err)
	}
	return nil
}

func (g *Gorm) UpsertSlot(ctx context.Context, slot *model.Slot) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(slot).Error
	if err != nil {
		return fmt.Errorf("%w: upsert slot %d/%d: %w", model.ErrStore, slot.RaidID, slot.SlotIndex, err)
	}
	return nil
}

func (g *Gorm) DeleteSlots(ctx context.Context, raidID uint) error {
	err := g.db.WithContext(ctx).Where("raid_id = ?", raidID).Delete(&model.Slot{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete slots of raid %d: %w", model.ErrStore, raidID, err)
	}
	return nil
}

// DeleteRaid removes the raid together with its signups and slots.
func (g *Gorm) DeleteRaid(ctx context.Context, raidID uint) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("raid_id = ?", raidID).Delete(&model.Slot{}).Error; err != nil {
			return fmt.Errorf("%w: delete slots of raid %d: %w", model.ErrStore, raidID, err)
		}
		if err := tx.Where("raid_id = ?", raidID).Delete(&model.Signup{}).Error; err != nil {
			return fmt.Errorf("%w: delete signups of raid %d: %w", model.ErrStore, raidID, err)
		}
		res := tx.Delete(&model.Raid{}, raidID)
		if res.Error != nil {
			return fmt.Errorf("%w: delete raid %d: %w", model.ErrStore, raidID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", model.ErrNotFound, raidID)
		}
		return nil
	})
}

// Zone returns the stored zone name, or "" when none is stored.
func (g *Gorm) Zone(ctx context.Context, scope model.ZoneScope, ownerID string) (string, error) {
	if ownerID == "" {
		return "", nil
	}
	var pref model.ZonePreference
	err := g.db.WithContext(ctx).Where("scope = ? AND owner_id = ?", scope, ownerID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: get %s zone %s: %w", model.ErrStore, scope, ownerID, err)
	}
	return pref.Zone, nil
}

func (g *Gorm) SetZone(ctx context.Context, pref *model.ZonePreference) error {
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(pref).Error
	if err != nil {
		return fmt.Errorf("%w: set %s zone %s: %w", model.ErrStore, pref.Scope, pref.OwnerID, err)
	}
	return nil
}

// Atomically runs fn inside a transaction. Errors returned by fn roll the
// transaction back and are passed through unchanged.
func (g *Gorm) Atomically(ctx context.Context, fn func(tx RaidStore) error) error {
	var fnErr error
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&Gorm{db: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("%w: commit: %w", model.ErrStore, err)
	}
	return nil
}
