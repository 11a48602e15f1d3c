package matching

import "skillswap/internal/service/member"

// Kind classifies a candidate relative to the member asking for matches.
type Kind string

const (
	// KindMutual: the candidate wants something the member offers and
	// offers something the member wants.
	KindMutual Kind = "mutual"
	// KindCanHelp: the member can teach the candidate.
	KindCanHelp Kind = "can-help"
	// KindCanLearn: the member can learn from the candidate.
	KindCanLearn Kind = "can-learn"
)

// Match is one candidate for a swap request. SuggestedSkill is the
// member's offered skill to propose; SuggestedWanted is the candidate's
// offered skill to ask for.
type Match struct {
	Candidate       *member.Member `json:"candidate"`
	Kind            Kind           `json:"match_kind"`
	SuggestedSkill  string         `json:"suggested_skill,omitempty"`
	SuggestedWanted string         `json:"suggested_wanted,omitempty"`
}

// Filter restricts which fields a browse search looks at.
type Filter string

const (
	FilterAll           Filter = "all"
	FilterSkillsOffered Filter = "skills-offered"
	FilterSkillsWanted  Filter = "skills-wanted"
	FilterLocation      Filter = "location"
)

func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterSkillsOffered, FilterSkillsWanted, FilterLocation:
		return true
	}
	return false
}

// DTOs
type BrowseRequest struct {
	Query  string `form:"q" binding:"omitempty,max=100"`
	Filter Filter `form:"filter"`
}

type MatchesResponse struct {
	Matches []Match `json:"matches"`
	Total   int     `json:"total"`
}

type BrowseResponse struct {
	Members []*member.Member `json:"members"`
	Total   int              `json:"total"`
}
