package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	RoadTransportation IssueCategory = "Road & Transportation"
	WaterSupply        IssueCategory = "Water Supply"
	Sanitation         IssueCategory = "Sanitation & Waste"
	Electricity        IssueCategory = "Electricity & Street Lighting"
	PublicSafety       IssueCategory = "Public Safety"
	ParksEnvironment   IssueCategory = "Parks & Environment"
	Other              IssueCategory = "Other"
)

// KnownCategories lists the enumerated categories. Anything else is
// stored as free text and treated like Other for matching purposes.
var KnownCategories = []IssueCategory{
	RoadTransportation,
	WaterSupply,
	Sanitation,
	Electricity,
	PublicSafety,
	ParksEnvironment,
	Other,
}

// IssueStatus enum
type IssueStatus string

const (
	StatusReported   IssueStatus = "reported"
	StatusAssigned   IssueStatus = "assigned"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusRejected   IssueStatus = "rejected"
)

// Valid reports whether s is one of the known workflow states.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusReported, StatusAssigned, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s ends the technician workflow.
func (s IssueStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Open reports whether the issue still needs work.
func (s IssueStatus) Open() bool {
	return s == StatusReported || s == StatusAssigned || s == StatusInProgress
}

// Priority enum, shared by issues and notifications
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// AssignedBySystem marks automatic assignments.
const AssignedBySystem = "system"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    IssueCategory `json:"category"`
	Location    string        `json:"location"`
	Priority    Priority      `json:"priority"`
	Coordinates *Coordinates  `json:"coordinates,omitempty"`
	PhotoURL    *string       `json:"photoUrl,omitempty"`

	ReportedBy   string    `json:"reportedBy"`
	ReporterName string    `json:"reporterName"`
	ReportedAt   time.Time `json:"reportedAt"`

	Status                  IssueStatus `json:"status"`
	AssignedTo              string      `json:"assignedTo,omitempty"`
	AssignedBy              string      `json:"assignedBy,omitempty"`
	AssignedAt              *time.Time  `json:"assignedAt,omitempty"`
	AssignmentNotes         string      `json:"assignmentNotes,omitempty"`
	TechnicianNote          string      `json:"technicianNote,omitempty"`
	AdminNote               string      `json:"adminNote,omitempty"`
	EstimatedCompletionDate *time.Time  `json:"estimatedCompletionDate,omitempty"`
	UpdatedAt               time.Time   `json:"updatedAt"`
	UpdatedBy               string      `json:"updatedBy,omitempty"`
}

// Assigned reports whether a technician currently owns the issue.
func (i *Issue) Assigned() bool {
	return i.AssignedTo != ""
}

// AssignmentTime is assignedAt, falling back to reportedAt.
func (i *Issue) AssignmentTime() time.Time {
	if i.AssignedAt != nil {
		return *i.AssignedAt
	}
	return i.ReportedAt
}

// IssueUpdate carries a partial set of fields. Nil pointers are left
// untouched by the merge.
type IssueUpdate struct {
	Title                   *string
	Description             *string
	Category                *IssueCategory
	Location                *string
	Priority                *Priority
	Coordinates             *Coordinates
	PhotoURL                *string
	Status                  *IssueStatus
	AssignedTo              *string
	AssignedBy              *string
	AssignedAt              *time.Time
	AssignmentNotes         *string
	TechnicianNote          *string
	AdminNote               *string
	EstimatedCompletionDate *time.Time

	// ClearAssignment empties assignedTo, assignedBy and assignedAt.
	ClearAssignment bool

	UpdatedBy string
}

// Apply merges the provided fields into issue.
func (u IssueUpdate) Apply(issue *Issue) {
	if u.Title != nil {
		issue.Title = *u.Title
	}
	if u.Description != nil {
		issue.Description = *u.Description
	}
	if u.Category != nil {
		issue.Category = *u.Category
	}
	if u.Location != nil {
		issue.Location = *u.Location
	}
	if u.Priority != nil {
		issue.Priority = *u.Priority
	}
	if u.Coordinates != nil {
		c := *u.Coordinates
		issue.Coordinates = &c
	}
	if u.PhotoURL != nil {
		url := *u.PhotoURL
		issue.PhotoURL = &url
	}
	if u.Status != nil {
		issue.Status = *u.Status
	}
	if u.ClearAssignment {
		issue.AssignedTo = ""
		issue.AssignedBy = ""
		issue.AssignedAt = nil
	}
	if u.AssignedTo != nil {
		issue.AssignedTo = *u.AssignedTo
	}
	if u.AssignedBy != nil {
		issue.AssignedBy = *u.AssignedBy
	}
	if u.AssignedAt != nil {
		at := *u.AssignedAt
		issue.AssignedAt = &at
	}
	if u.AssignmentNotes != nil {
		issue.AssignmentNotes = *u.AssignmentNotes
	}
	if u.TechnicianNote != nil {
		issue.TechnicianNote = *u.TechnicianNote
	}
	if u.AdminNote != nil {
		issue.AdminNote = *u.AdminNote
	}
	if u.EstimatedCompletionDate != nil {
		d := *u.EstimatedCompletionDate
		issue.EstimatedCompletionDate = &d
	}
	if u.UpdatedBy != "" {
		issue.UpdatedBy = u.UpdatedBy
	}
}
