package domain

import "errors"

var (
	ErrNameRequired      = errors.New("plan name is required")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrDayNameRequired   = errors.New("day name is required")
	ErrDayNotFound       = errors.New("day not found")
	ErrTooManyDays       = errors.New("a plan can have at most 4 days")
	ErrLastDay           = errors.New("a plan must keep at least one day")
	ErrDuplicateDay      = errors.New("duplicate day")
	ErrActivityNotFound  = errors.New("activity not found")
	ErrDuplicateInstance = errors.New("activity instance already scheduled")
	ErrNotPermutation    = errors.New("reordered activities do not match the day's activities")
)
