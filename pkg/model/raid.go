package model

import (
	"time"
)

type Raid struct {
	ID            uint   `gorm:"primaryKey"`
	GuildID       string `gorm:"index"`
	ChannelID     string
	MessageID     string
	OrganizerID   string
	Name          string
	Tier          string
	Aim           string
	ScheduledTime int64 `gorm:"index"` // epoch seconds, UTC
	RosterEnabled bool
	Notified      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Signups []Signup `gorm:"foreignKey:RaidID"`
	Slots   []Slot   `gorm:"foreignKey:RaidID"`
}

// StartTime returns the scheduled time as a UTC time.Time.
func (r *Raid) StartTime() time.Time {
	return time.Unix(r.ScheduledTime, 0).UTC()
}

// Signup returns the player's signup row, or nil.
func (r *Raid) Signup(playerID string) *Signup {
	for i := range r.Signups {
		if r.Signups[i].PlayerID == playerID {
			return &r.Signups[i]
		}
	}
	return nil
}

// SeatOf returns the slot index the player occupies, or -1.
func (r *Raid) SeatOf(playerID string) int {
	if playerID == "" {
		return -1
	}
	for _, s := range r.Slots {
		if s.AssignedPlayerID == playerID {
			return s.SlotIndex
		}
	}
	return -1
}

// Slot returns the slot with the given index, or nil.
func (r *Raid) Slot(index int) *Slot {
	for i := range r.Slots {
		if r.Slots[i].SlotIndex == index {
			return &r.Slots[i]
		}
	}
	return nil
}

// PutSignup replaces or appends the signup row in memory.
func (r *Raid) PutSignup(s Signup) {
	if cur := r.Signup(s.PlayerID); cur != nil {
		*cur = s
		return
	}
	r.Signups = append(r.Signups, s)
}

type Signup struct {
	RaidID      uint   `gorm:"primaryKey;autoIncrement:false"`
	PlayerID    string `gorm:"primaryKey"`
	DisplayName string
	Unavailable bool
	ClassTags   TagSet `gorm:"type:TEXT"`
	SignupTime  time.Time
}

type Slot struct {
	RaidID           uint   `gorm:"primaryKey;autoIncrement:false"`
	SlotIndex        int    `gorm:"primaryKey;autoIncrement:false"`
	AllowedClasses   TagSet `gorm:"type:TEXT"`
	Custom           bool
	AssignedPlayerID string
}

func (s *Slot) Empty() bool {
	return s.AssignedPlayerID == ""
}

type ZoneScope string

const (
	ZoneScopeUser  ZoneScope = "user"
	ZoneScopeGuild ZoneScope = "guild"
)

type ZonePreference struct {
	Scope   ZoneScope `gorm:"primaryKey"`
	OwnerID string    `gorm:"primaryKey"`
	Zone    string
}

// Player is a chat user identified by an external id.
type Player struct {
	ID          string
	DisplayName string
}
