package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidDate         = errors.New("date must be in YYYY-MM-DD format")
	ErrDateInPast          = errors.New("date is in the past")
	ErrInvalidSlot         = errors.New("invalid time slot")
	ErrSlotInPast          = errors.New("time slot has already started")
	ErrSlotTaken           = errors.New("time slot is already booked")
	ErrInvalidStatus       = errors.New("invalid appointment status")
	ErrInvalidTransition   = errors.New("appointment status change not allowed")
	ErrForbidden           = errors.New("not allowed to change this appointment")
	ErrServiceNotFound     = errors.New("service not found")
)
