// Package roster assigns signed up players to class restricted slots.
package roster

import (
	"context"
	"fmt"
	"strings"

	"github.com/sokdak/raid-bot/pkg/catalog"
	"github.com/sokdak/raid-bot/pkg/model"
	"github.com/sokdak/raid-bot/pkg/store"
)

type State int

const (
	Free State = iota
	Rostered
	Customized
)

func (s State) String() string {
	switch s {
	case Rostered:
		return "rostered"
	case Customized:
		return "customized"
	default:
		return "free"
	}
}

// StateOf derives the roster state from the raid.
func StateOf(raid *model.Raid) State {
	if !raid.RosterEnabled {
		return Free
	}
	for _, s := range raid.Slots {
		if s.Custom {
			return Customized
		}
	}
	return Rostered
}

type Engine struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

// Enable populates the canonical slot template.
func (e *Engine) Enable(ctx context.Context, st store.Writer, raid *model.Raid) error {
	if raid.RosterEnabled {
		return fmt.Errorf("%w: roster already enabled", model.ErrValidation)
	}

	slots := make([]model.Slot, e.catalog.TemplateSize())
	for i := range slots {
		allowed, _ := e.catalog.DefaultClasses(i)
		slots[i] = model.Slot{RaidID: raid.ID, SlotIndex: i, AllowedClasses: allowed}
	}

	// stale rows from an interrupted disable are dropped first
	if err := st.DeleteSlots(ctx, raid.ID); err != nil {
		return err
	}
	for i := range slots {
		if err := st.UpsertSlot(ctx, &slots[i]); err != nil {
			return err
		}
	}
	next := *raid
	next.RosterEnabled = true
	if err := st.UpsertRaid(ctx, &next); err != nil {
		return err
	}

	raid.RosterEnabled = true
	raid.UpdatedAt = next.UpdatedAt
	raid.Slots = slots
	return nil
}

// Disable drops every slot, overrides included.
func (e *Engine) Disable(ctx context.Context, st store.Writer, raid *model.Raid) error {
	if !raid.RosterEnabled {
		return fmt.Errorf("%w: roster is not enabled", model.ErrValidation)
	}
	if err := st.DeleteSlots(ctx, raid.ID); err != nil {
		return err
	}
	next := *raid
	next.RosterEnabled = false
	if err := st.UpsertRaid(ctx, &next); err != nil {
		return err
	}

	raid.RosterEnabled = false
	raid.UpdatedAt = next.UpdatedAt
	raid.Slots = nil
	return nil
}

// Override replaces the allowed classes of one slot and vacates it.
func (e *Engine) Override(ctx context.Context, st store.Writer, raid *model.Raid, index int, classes []string) error {
	slot, err := e.slot(raid, index)
	if err != nil {
		return err
	}
	if unknown := e.catalog.Unknown(classes); len(unknown) > 0 {
		return fmt.Errorf("%w: unknown classes %s", model.ErrValidation, strings.Join(unknown, ", "))
	}
	allowed := model.NewTagSet(classes...)
	if len(allowed) == 0 {
		return fmt.Errorf("%w: a slot must allow at least one class", model.ErrValidation)
	}

	next := *slot
	next.AllowedClasses = allowed
	next.Custom = true
	next.AssignedPlayerID = ""
	return e.write(ctx, st, slot, next)
}

// Assign seats the player in an empty slot they are eligible for.
func (e *Engine) Assign(ctx context.Context, st store.Writer, raid *model.Raid, index int, playerID string) error {
	slot, err := e.slot(raid, index)
	if err != nil {
		return err
	}
	if !slot.Empty() {
		return fmt.Errorf("%w: slot %d is taken", model.ErrSlotConflict, index)
	}
	signup, err := e.eligible(raid, playerID)
	if err != nil {
		return err
	}
	if !slot.AllowedClasses.Intersects(signup.ClassTags) {
		return fmt.Errorf("%w: none of %s fits slot %d", model.ErrClassMismatch, strings.Join(signup.ClassTags, ", "), index)
	}

	next := *slot
	next.AssignedPlayerID = playerID
	return e.write(ctx, st, slot, next)
}

// AutoAssign seats the player in the first empty slot, by index, that allows
// the requested class. It returns the chosen slot index.
func (e *Engine) AutoAssign(ctx context.Context, st store.Writer, raid *model.Raid, playerID, class string) (int, error) {
	if !raid.RosterEnabled {
		return -1, fmt.Errorf("%w: roster is not enabled", model.ErrValidation)
	}
	signup, err := e.eligible(raid, playerID)
	if err != nil {
		return -1, err
	}
	if !signup.ClassTags.Has(class) {
		return -1, fmt.Errorf("%w: player did not sign up as %s", model.ErrClassMismatch, class)
	}

	for i := range raid.Slots {
		slot := &raid.Slots[i]
		if !slot.Empty() || !slot.AllowedClasses.Has(class) {
			continue
		}
		next := *slot
		next.AssignedPlayerID = playerID
		if err := e.write(ctx, st, slot, next); err != nil {
			return -1, err
		}
		return slot.SlotIndex, nil
	}
	return -1, fmt.Errorf("%w: no empty slot allows %s", model.ErrNoSlotAvailable, class)
}

// Unassign vacates a slot. Non custom slots get their template classes back.
func (e *Engine) Unassign(ctx context.Context, st store.Writer, raid *model.Raid, index int, privileged bool) error {
	if !privileged {
		return fmt.Errorf("%w: only raid leaders can unassign", model.ErrPermission)
	}
	slot, err := e.slot(raid, index)
	if err != nil {
		return err
	}

	next := *slot
	next.AssignedPlayerID = ""
	if !slot.Custom {
		if allowed, ok := e.catalog.DefaultClasses(index); ok {
			next.AllowedClasses = allowed
		}
	}
	return e.write(ctx, st, slot, next)
}

func (e *Engine) slot(raid *model.Raid, index int) (*model.Slot, error) {
	if !raid.RosterEnabled {
		return nil, fmt.Errorf("%w: roster is not enabled", model.ErrValidation)
	}
	slot := raid.Slot(index)
	if slot == nil {
		return nil, fmt.Errorf("%w: no slot %d", model.ErrValidation, index)
	}
	return slot, nil
}

func (e *Engine) eligible(raid *model.Raid, playerID string) (*model.Signup, error) {
	signup := raid.Signup(playerID)
	if signup == nil {
		return nil, fmt.Errorf("%w: player %s has not signed up", model.ErrValidation, playerID)
	}
	if signup.Unavailable {
		return nil, fmt.Errorf("%w: player %s is unavailable", model.ErrClassMismatch, playerID)
	}
	if seat := raid.SeatOf(playerID); seat >= 0 {
		return nil, fmt.Errorf("%w: player %s already holds slot %d", model.ErrSlotConflict, playerID, seat)
	}
	return signup, nil
}

func (e *Engine) write(ctx context.Context, st store.Writer, slot *model.Slot, next model.Slot) error {
	if err := st.UpsertSlot(ctx, &next); err != nil {
		return err
	}
	*slot = next
	return nil
}
