package member

import "skillswap/internal/errs"

var (
	ErrMemberNotFound = errs.New(errs.ErrNotFound, "member not found")
	ErrEmailTaken     = errs.New(errs.ErrValidation, "email already registered")
	ErrMemberConflict = errs.New(errs.ErrConflict, "member was modified concurrently")

	ErrEmptySkill  = errs.New(errs.ErrValidation, "skill must not be empty")
	ErrInvalidSlot = errs.New(errs.ErrValidation, "unknown availability slot")
	ErrInvalidName = errs.New(errs.ErrValidation, "name must not be empty")

	ErrInvalidDirection = errs.New(errs.ErrValidation, "direction must be offered or wanted")
)
