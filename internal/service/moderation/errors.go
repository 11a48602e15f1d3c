package moderation

import "skillswap/internal/errs"

var (
	ErrAdminOnly = errs.New(errs.ErrUnauthorized, "admin access required")

	ErrReportNotFound     = errs.New(errs.ErrNotFound, "report not found")
	ErrReportProcessed    = errs.New(errs.ErrAlreadyProcessed, "report has already been reviewed")
	ErrSubmissionNotFound = errs.New(errs.ErrNotFound, "skill submission not found")
	ErrSubmissionReviewed = errs.New(errs.ErrAlreadyProcessed, "skill submission has already been reviewed")

	ErrSelfReport     = errs.New(errs.ErrValidation, "cannot report yourself")
	ErrInvalidReason  = errs.New(errs.ErrValidation, "reason must be one of inappropriate-behavior, no-show, spam, harassment, other")
	ErrEmptySkill     = errs.New(errs.ErrValidation, "skill must not be empty")
	ErrEmptyBroadcast = errs.New(errs.ErrValidation, "broadcast message must not be empty")
)
