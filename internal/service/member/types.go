package member

import (
	"slices"
	"time"
)

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Direction says which of a member's skill sets a skill belongs to.
type Direction string

const (
	DirectionOffered Direction = "offered"
	DirectionWanted  Direction = "wanted"
)

func (d Direction) Valid() bool {
	return d == DirectionOffered || d == DirectionWanted
}

// Slot is an availability window.
type Slot string

const (
	SlotWeekdays        Slot = "weekdays-9-5"
	SlotWeekdayEvenings Slot = "weekday-evenings"
	SlotWeekends        Slot = "weekends"
	SlotWeekendMornings Slot = "weekend-mornings"
	SlotWeekendEvenings Slot = "weekend-evenings"
	SlotFlexible        Slot = "flexible"
)

var allSlots = []Slot{
	SlotWeekdays,
	SlotWeekdayEvenings,
	SlotWeekends,
	SlotWeekendMornings,
	SlotWeekendEvenings,
	SlotFlexible,
}

func (s Slot) Valid() bool {
	return slices.Contains(allSlots, s)
}

// Member is a registered user of the marketplace.
type Member struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Location       string    `json:"location,omitempty"`
	Offered        SkillSet  `json:"skills_offered"`
	Wanted         SkillSet  `json:"skills_wanted"`
	Availability   []Slot    `json:"availability"`
	Public         bool      `json:"is_public"`
	Role           Role      `json:"role"`
	Rating         float64   `json:"rating"`
	CompletedSwaps int       `json:"completed_swaps"`
	Banned         bool      `json:"banned"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (m *Member) IsAdmin() bool { return m.Role == RoleAdmin }

// Clone returns a deep copy; SkillSet values are already copy-on-write.
func (m *Member) Clone() *Member {
	c := *m
	c.Availability = slices.Clone(m.Availability)
	return &c
}

// Skills returns the set for the given direction.
func (m *Member) Skills(d Direction) SkillSet {
	if d == DirectionWanted {
		return m.Wanted
	}
	return m.Offered
}

// DTOs
type RegisterRequest struct {
	Name         string   `json:"name" binding:"required,min=2,max=255"`
	Email        string   `json:"email" binding:"required,email"`
	Location     string   `json:"location" binding:"omitempty,max=255"`
	Offered      []string `json:"skills_offered" binding:"omitempty,max=20"`
	Wanted       []string `json:"skills_wanted" binding:"omitempty,max=20"`
	Availability []Slot   `json:"availability"`
	Public       *bool    `json:"is_public"`
}

type UpdateProfileRequest struct {
	Name         string  `json:"name" binding:"omitempty,min=2,max=255"`
	Location     *string `json:"location" binding:"omitempty,max=255"`
	Availability []Slot  `json:"availability"`
}

type UpdateSkillsRequest struct {
	Offered []string `json:"skills_offered" binding:"max=20"`
	Wanted  []string `json:"skills_wanted" binding:"max=20"`
}

type VisibilityRequest struct {
	Public bool `json:"is_public"`
}
