package coordinator

type Kind string

const (
	KindSignUp          Kind = "signup"
	KindSignUpAll       Kind = "signup_all"
	KindCancel          Kind = "cancel"
	KindAssign          Kind = "assign"
	KindAutoAssign      Kind = "autoassign"
	KindUnassign        Kind = "unassign"
	KindEditTime        Kind = "edit_time"
	KindEditAim         Kind = "edit_aim"
	KindDelete          Kind = "delete"
	KindConfigureRoster Kind = "configure_roster"
)

type RosterAction string

const (
	RosterEnable   RosterAction = "enable"
	RosterDisable  RosterAction = "disable"
	RosterOverride RosterAction = "override"
)

// Actor is the user behind an event, as seen by the transport.
type Actor struct {
	ID          string
	DisplayName string
	// Roles are the names of the guild roles the actor holds.
	Roles []string
	// HeldClasses are the class tags derived from Roles.
	HeldClasses []string
	Admin       bool
}

type Payload struct {
	// PlayerID targets another player; empty means the actor.
	PlayerID   string
	PlayerName string
	ClassTags  []string
	Class      string
	SlotIndex  int
	Time       string
	Aim        string
	Roster     RosterAction
}

type Event struct {
	Kind    Kind
	RaidID  uint
	Actor   Actor
	Payload Payload
}

type ScheduleRequest struct {
	GuildID   string
	ChannelID string
	Organizer Actor
	Name      string
	Tier      string
	Aim       string
	// Time is a wall clock time in the organizer's zone.
	Time   string
	Roster bool
}
