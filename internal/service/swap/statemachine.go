package swap

import (
	"fmt"
	"slices"

	"skillswap/internal/events"
	"skillswap/internal/identity"
)

// Transition names a state machine edge.
type Transition string

const (
	TransitionAccept      Transition = "accept"
	TransitionReject      Transition = "reject"
	TransitionCancel      Transition = "cancel"
	TransitionComplete    Transition = "complete"
	TransitionForceCancel Transition = "force-cancel"
)

type actorRole int

const (
	roleRecipient actorRole = iota
	roleRequester
	roleParty
	roleAdmin
)

type rule struct {
	from  []Status
	to    Status
	actor actorRole
}

var rules = map[Transition]rule{
	TransitionAccept:      {from: []Status{StatusPending}, to: StatusAccepted, actor: roleRecipient},
	TransitionReject:      {from: []Status{StatusPending}, to: StatusRejected, actor: roleRecipient},
	TransitionCancel:      {from: []Status{StatusPending}, to: StatusCancelled, actor: roleRequester},
	TransitionComplete:    {from: []Status{StatusAccepted}, to: StatusCompleted, actor: roleParty},
	TransitionForceCancel: {from: []Status{StatusPending, StatusAccepted}, to: StatusCancelled, actor: roleAdmin},
}

// Next returns the status t leads to from current. When current already is
// that status the transition is a no-op and noop is true.
func Next(current Status, t Transition) (next Status, noop bool, err error) {
	rule, ok := rules[t]
	if !ok {
		return current, false, fmt.Errorf("%w: unknown transition %q", ErrInvalidTransition, t)
	}
	if current == rule.to {
		return current, true, nil
	}
	if !slices.Contains(rule.from, current) {
		return current, false, fmt.Errorf("%w: cannot %s a %s request", ErrInvalidTransition, t, current)
	}
	return rule.to, false, nil
}

// Authorize checks that actor may perform t on r.
func Authorize(t Transition, r *SwapRequest, actor identity.Actor) error {
	rule, ok := rules[t]
	if !ok {
		return fmt.Errorf("%w: unknown transition %q", ErrInvalidTransition, t)
	}

	switch rule.actor {
	case roleAdmin:
		if !actor.Admin {
			return ErrWrongActor
		}
		return nil
	case roleRecipient:
		if actor.MemberID == r.RecipientID {
			return nil
		}
	case roleRequester:
		if actor.MemberID == r.RequesterID {
			return nil
		}
	case roleParty:
		if r.IsParty(actor.MemberID) {
			return nil
		}
	}

	if !r.IsParty(actor.MemberID) {
		return ErrNotParty
	}
	return ErrWrongActor
}

var transitionEvents = map[Transition]string{
	TransitionAccept:      events.RequestAccepted,
	TransitionReject:      events.RequestRejected,
	TransitionCancel:      events.RequestCancelled,
	TransitionComplete:    events.RequestCompleted,
	TransitionForceCancel: events.RequestForceCancelled,
}

// Event returns the event type published after t succeeds.
func (t Transition) Event() string {
	return transitionEvents[t]
}
