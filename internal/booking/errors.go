package booking

import "errors"

var (
	// ErrSlotUnavailable means the requested (date, time) pair is not open,
	// usually because a concurrent booking won the race.
	ErrSlotUnavailable = errors.New("slot not available")

	// ErrIllegalTransition is a status-machine violation, e.g. confirming a
	// cancelled appointment or cancelling one twice.
	ErrIllegalTransition = errors.New("illegal status transition")

	ErrServiceNotFound = errors.New("service not found")
	ErrNotFound        = errors.New("appointment not found")
)
