package swap

import "skillswap/internal/errs"

var (
	ErrRequestNotFound   = errs.New(errs.ErrNotFound, "swap request not found")
	ErrInvalidTransition = errs.New(errs.ErrInvalidTransition, "transition not allowed from current status")
	ErrModerated         = errs.New(errs.ErrInvalidTransition, "request was cancelled by moderation")
	ErrRequestConflict   = errs.New(errs.ErrConflict, "swap request was modified concurrently")
	ErrNotParty          = errs.New(errs.ErrUnauthorized, "only a party to the request can do this")
	ErrWrongActor        = errs.New(errs.ErrUnauthorized, "actor may not perform this transition")
	ErrMemberBanned      = errs.New(errs.ErrUnauthorized, "banned members cannot create or accept requests")

	ErrSelfRequest       = errs.New(errs.ErrValidation, "cannot send a swap request to yourself")
	ErrEmptySkill        = errs.New(errs.ErrValidation, "skill must not be empty")
	ErrSkillNotOffered   = errs.New(errs.ErrValidation, "skill_offered is not one of your offered skills")
	ErrSkillNotAvailable = errs.New(errs.ErrValidation, "skill_wanted is not offered by the recipient")
	ErrRecipientBanned   = errs.New(errs.ErrValidation, "recipient is not accepting requests")
	ErrInvalidView       = errs.New(errs.ErrValidation, "view must be one of incoming, outgoing, active, completed, all")
)
