package matching

import "skillswap/internal/errs"

var ErrInvalidFilter = errs.New(errs.ErrValidation, "filter must be one of all, skills-offered, skills-wanted, location")
