package swap

import (
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled}

// Terminal reports whether no transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusCancelled
}

// Active reports whether the request still binds both parties.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

// ReasonModeration is recorded on requests cancelled by an administrator.
const ReasonModeration = "moderation"

// Review is one party's rating of the other after a completed swap.
type Review struct {
	Score     int       `json:"score"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SwapRequest is one proposal to exchange SkillOffered (taught by the
// requester) for SkillWanted (taught by the recipient).
type SwapRequest struct {
	ID           int64  `json:"id,string"`
	RequesterID  string `json:"requester_id"`
	RecipientID  string `json:"recipient_id"`
	SkillOffered string `json:"skill_offered"`
	SkillWanted  string `json:"skill_wanted"`
	Message      string `json:"message,omitempty"`
	Status       Status `json:"status"`
	CancelReason string `json:"cancel_reason,omitempty"`
	// RequesterReview is written by the requester about the recipient, and
	// RecipientReview the other way round.
	RequesterReview *Review   `json:"requester_review,omitempty"`
	RecipientReview *Review   `json:"recipient_review,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *SwapRequest) Clone() *SwapRequest {
	c := *r
	if r.RequesterReview != nil {
		review := *r.RequesterReview
		c.RequesterReview = &review
	}
	if r.RecipientReview != nil {
		review := *r.RecipientReview
		c.RecipientReview = &review
	}
	return &c
}

func (r *SwapRequest) IsParty(memberID string) bool {
	return memberID == r.RequesterID || memberID == r.RecipientID
}

// Counterparty returns the other party's id, or "" if memberID is not a party.
func (r *SwapRequest) Counterparty(memberID string) string {
	switch memberID {
	case r.RequesterID:
		return r.RecipientID
	case r.RecipientID:
		return r.RequesterID
	}
	return ""
}

// ReviewBy returns the review memberID wrote, if any.
func (r *SwapRequest) ReviewBy(memberID string) *Review {
	switch memberID {
	case r.RequesterID:
		return r.RequesterReview
	case r.RecipientID:
		return r.RecipientReview
	}
	return nil
}

// SetReviewBy stores the review memberID wrote. It is a no-op for
// non-parties.
func (r *SwapRequest) SetReviewBy(memberID string, review *Review) {
	switch memberID {
	case r.RequesterID:
		r.RequesterReview = review
	case r.RecipientID:
		r.RecipientReview = review
	}
}

// View selects which of a member's requests to list.
type View string

const (
	ViewIncoming  View = "incoming"
	ViewOutgoing  View = "outgoing"
	ViewActive    View = "active"
	ViewCompleted View = "completed"
	ViewAll       View = "all"
)

// Includes reports whether r belongs in the view for memberID.
func (v View) Includes(r *SwapRequest, memberID string) bool {
	switch v {
	case ViewIncoming:
		return r.RecipientID == memberID && r.Status == StatusPending
	case ViewOutgoing:
		return r.RequesterID == memberID
	case ViewActive:
		return r.Status == StatusAccepted
	case ViewCompleted:
		return r.Status == StatusCompleted
	case ViewAll:
		return true
	}
	return false
}

func (v View) Valid() bool {
	switch v {
	case ViewIncoming, ViewOutgoing, ViewActive, ViewCompleted, ViewAll:
		return true
	}
	return false
}

// DTOs
type CreateRequest struct {
	RecipientID  string `json:"recipient_id" binding:"required"`
	SkillOffered string `json:"skill_offered" binding:"required,max=100"`
	SkillWanted  string `json:"skill_wanted" binding:"required,max=100"`
	Message      string `json:"message" binding:"omitempty,max=1000"`
}

type ListRequest struct {
	View View `form:"view"`
}

type ListResponse struct {
	Requests []*SwapRequest `json:"requests"`
	Total    int            `json:"total"`
}
