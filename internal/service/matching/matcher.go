package matching

import (
	"context"
	"sort"
	"strings"

	"skillswap/internal/service/member"
)

// Matcher finds swap candidates for a member.
type Matcher interface {
	FindMatches(ctx context.Context, m *member.Member) ([]Match, error)
}

// Catalog supplies the public, non-banned profiles to match against.
type Catalog interface {
	ListPublic(ctx context.Context) ([]*member.Member, error)
}

// CatalogMatcher scans the whole public catalog per query. That is
// O(members x skills), fine for a small community; an inverted
// skill->member index can replace the scan behind the same interface.
type CatalogMatcher struct {
	catalog Catalog
}

func NewCatalogMatcher(catalog Catalog) *CatalogMatcher {
	return &CatalogMatcher{
		catalog: catalog,
	}
}

// FindMatches returns mutual matches first, then by rating descending,
// then by candidate id ascending.
func (m *CatalogMatcher) FindMatches(ctx context.Context, me *member.Member) ([]Match, error) {
	candidates, err := m.catalog.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == me.ID || candidate.Banned || !candidate.Public {
			continue
		}
		if match, ok := Evaluate(me, candidate); ok {
			matches = append(matches, match)
		}
	}

	sortMatches(matches)
	return matches, nil
}

// Evaluate computes the match between me and candidate. ok is false when
// neither side can help the other.
func Evaluate(me, candidate *member.Member) (Match, bool) {
	give, canHelp := firstGive(me, candidate)
	get, canLearn := firstGet(me, candidate)

	var kind Kind
	switch {
	case canHelp && canLearn:
		kind = KindMutual
	case canHelp:
		kind = KindCanHelp
	case canLearn:
		kind = KindCanLearn
	default:
		return Match{}, false
	}

	// The request always proposes one of my offered skills, so fall back
	// to the first one when the candidate wants none of them.
	if !canHelp {
		if offered := me.Offered.Values(); len(offered) > 0 {
			give = offered[0]
		}
	}
	if !canLearn {
		if offered := candidate.Offered.Values(); len(offered) > 0 {
			get = offered[0]
		}
	}

	return Match{
		Candidate:       candidate,
		Kind:            kind,
		SuggestedSkill:  give,
		SuggestedWanted: get,
	}, true
}

// firstGive finds my first offered skill that the candidate wants.
func firstGive(me, candidate *member.Member) (string, bool) {
	for _, skill := range me.Offered.Values() {
		if _, ok := candidate.Wanted.FindContaining(skill); ok {
			return skill, true
		}
	}
	return "", false
}

// firstGet finds the candidate's first offered skill that I want, in the
// candidate's spelling so it can be used verbatim as skill-wanted.
func firstGet(me, candidate *member.Member) (string, bool) {
	for _, skill := range me.Wanted.Values() {
		if offered, ok := candidate.Offered.FindContaining(skill); ok {
			return offered, true
		}
	}
	return "", false
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if (a.Kind == KindMutual) != (b.Kind == KindMutual) {
			return a.Kind == KindMutual
		}
		if a.Candidate.Rating != b.Candidate.Rating {
			return a.Candidate.Rating > b.Candidate.Rating
		}
		return a.Candidate.ID < b.Candidate.ID
	})
}

// Search filters the catalog by a case-insensitive substring over the
// fields selected by filter. An empty term matches everyone.
func Search(catalog []*member.Member, excludeID, term string, filter Filter) []*member.Member {
	needle := strings.ToLower(strings.TrimSpace(term))

	out := make([]*member.Member, 0, len(catalog))
	for _, m := range catalog {
		if m.ID == excludeID || m.Banned || !m.Public {
			continue
		}
		if needle == "" || matchesTerm(m, needle, filter) {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func matchesTerm(m *member.Member, needle string, filter Filter) bool {
	_, offered := m.Offered.FindContaining(needle)
	_, wanted := m.Wanted.FindContaining(needle)
	location := strings.Contains(strings.ToLower(m.Location), needle)

	switch filter {
	case FilterSkillsOffered:
		return offered
	case FilterSkillsWanted:
		return wanted
	case FilterLocation:
		return location
	default:
		return offered || wanted || location || strings.Contains(strings.ToLower(m.Name), needle)
	}
}
