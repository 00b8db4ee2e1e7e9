package model

import "errors"

var (
	ErrValidation      = errors.New("invalid request")
	ErrPermission      = errors.New("permission denied")
	ErrSlotConflict    = errors.New("slot conflict")
	ErrClassMismatch   = errors.New("class mismatch")
	ErrNoSlotAvailable = errors.New("no slot available")
	ErrNotFound        = errors.New("raid not found")
	ErrStore           = errors.New("store failure")
	ErrDelivery        = errors.New("delivery failure")
)
