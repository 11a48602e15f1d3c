package events

import (
	"context"
	"sync"
	"time"
)

// Event types emitted by the core.
const (
	MemberRegistered      = "member.registered"
	MemberBanned          = "member.banned"
	MemberUnbanned        = "member.unbanned"
	RequestCreated        = "request.created"
	RequestAccepted       = "request.accepted"
	RequestRejected       = "request.rejected"
	RequestCancelled      = "request.cancelled"
	RequestCompleted      = "request.completed"
	RequestForceCancelled = "request.force_cancelled"
	RatingSubmitted       = "rating.submitted"
	SkillApproved         = "skill.approved"
	SkillRejected         = "skill.rejected"
	ReportSubmitted       = "report.submitted"
	ReportResolved        = "report.resolved"
	ReportDismissed       = "report.dismissed"
	PlatformBroadcast     = "platform.broadcast"
	PlatformDigest        = "platform.digest"
)

// Event is a plain notification record. Delivery is up to whoever
// consumes the bus.
type Event struct {
	Type       string         `json:"type"`
	SubjectIDs []string       `json:"subject_ids"`
	Timestamp  time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Publisher emits events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MemoryPublisher keeps published events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfType returns published events with the given type, in order.
func (m *MemoryPublisher) OfType(eventType string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
