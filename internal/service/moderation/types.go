package moderation

import (
	"time"

	"skillswap/internal/service/member"
	"skillswap/internal/service/swap"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type ReasonCode string

const (
	ReasonInappropriate ReasonCode = "inappropriate-behavior"
	ReasonNoShow        ReasonCode = "no-show"
	ReasonSpam          ReasonCode = "spam"
	ReasonHarassment    ReasonCode = "harassment"
	ReasonOther         ReasonCode = "other"
)

func (r ReasonCode) Valid() bool {
	switch r {
	case ReasonInappropriate, ReasonNoShow, ReasonSpam, ReasonHarassment, ReasonOther:
		return true
	}
	return false
}

// Report is one member's complaint about another.
type Report struct {
	ID          int64        `json:"id,string"`
	ReportedID  string       `json:"reported_id"`
	ReporterID  string       `json:"reporter_id"`
	Reason      ReasonCode   `json:"reason"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	ReviewedBy  string       `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// SkillSubmission is a skill waiting for review before it is copied into
// the owner's profile.
type SkillSubmission struct {
	ID              int64            `json:"id,string"`
	MemberID        string           `json:"member_id"`
	Skill           string           `json:"skill"`
	Description     string           `json:"description,omitempty"`
	Direction       member.Direction `json:"direction"`
	FlagReason      string           `json:"flag_reason,omitempty"`
	Status          SubmissionStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ReviewedBy      string           `json:"reviewed_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	ReviewedAt      *time.Time       `json:"reviewed_at,omitempty"`
}

// CancelOutcome is the result of force-cancelling one request during a ban.
type CancelOutcome struct {
	RequestID int64       `json:"request_id,string"`
	Status    swap.Status `json:"status"`
	Error     string      `json:"error,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// BanResult reports the ban itself and each cascaded cancellation. The
// cascade is not atomic; failed outcomes can be retried by banning again.
type BanResult struct {
	Member    *member.Member  `json:"member"`
	Changed   bool            `json:"changed"`
	Cancelled []CancelOutcome `json:"cancelled"`
}

// Failed reports whether any cascaded cancellation failed.
func (b *BanResult) Failed() bool {
	for _, o := range b.Cancelled {
		if o.Error != "" {
			return true
		}
	}
	return false
}

// Overview is a snapshot of platform activity.
type Overview struct {
	Members            int                 `json:"members"`
	BannedMembers      int                 `json:"banned_members"`
	Swaps              map[swap.Status]int `json:"swaps"`
	PendingReports     int                 `json:"pending_reports"`
	PendingSubmissions int                 `json:"pending_submissions"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// DTOs
type SubmitReportRequest struct {
	ReportedID  string     `json:"reported_id" binding:"required"`
	Reason      ReasonCode `json:"reason" binding:"required"`
	Description string     `json:"description" binding:"omitempty,max=2000"`
}

type SubmitSkillRequest struct {
	Skill       string           `json:"skill" binding:"required,max=100"`
	Description string           `json:"description" binding:"omitempty,max=1000"`
	Direction   member.Direction `json:"direction" binding:"required"`
}

type RejectSkillRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type BroadcastRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type ReportsResponse struct {
	Reports []*Report `json:"reports"`
	Total   int       `json:"total"`
}

type SubmissionsResponse struct {
	Submissions []*SkillSubmission `json:"submissions"`
	Total       int                `json:"total"`
}
