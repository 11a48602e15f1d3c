package rating

import "skillswap/internal/errs"

var (
	ErrInvalidScore   = errs.New(errs.ErrValidation, "rating must be between 1 and 5")
	ErrNotParty       = errs.New(errs.ErrUnauthorized, "only a party to the swap can rate it")
	ErrNotCompleted   = errs.New(errs.ErrInvalidTransition, "only completed swaps can be rated")
	ErrAlreadyRated   = errs.New(errs.ErrAlreadyRated, "you have already rated this swap")
	ErrRatingConflict = errs.New(errs.ErrConflict, "swap request kept changing while rating")
)
