package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Complaint is one citizen grievance against one stakeholder office.
// Responses and EscalationHistory are append-only; Stage never moves backwards.
type Complaint struct {
	ID                  string         `gorm:"primaryKey" json:"id"`
	CitizenID           string         `gorm:"type:text;not null;index" json:"citizen_id"`
	Title               string         `gorm:"type:text;not null" json:"title"`
	Description         string         `gorm:"type:text;not null" json:"description"`
	StakeholderOfficeID string         `gorm:"type:text;not null;index" json:"stakeholder_office_id"`
	Location            string         `gorm:"type:text" json:"location"`
	Attachments         pq.StringArray `gorm:"type:text[]" json:"attachments"`

	Stage          Stage   `gorm:"type:text;not null;index" json:"stage"`
	CurrentHandler Handler `gorm:"type:text;not null;index" json:"current_handler"`
	Status         Status  `gorm:"type:text;not null;index" json:"status"`

	// DueDates holds the response deadline of every stage that has been active.
	DueDates map[Stage]time.Time `gorm:"type:text;serializer:json" json:"due_dates"`

	Responses         []Response        `gorm:"foreignKey:ComplaintID" json:"responses"`
	EscalationHistory []EscalationEntry `gorm:"foreignKey:ComplaintID" json:"escalation_history"`
	Resolution        *Resolution       `gorm:"foreignKey:ComplaintID" json:"resolution,omitempty"`

	// RelatedComplaintID points from a second-stage complaint to its original.
	RelatedComplaintID *string `gorm:"type:text;index" json:"related_complaint_id,omitempty"`
	// SecondStageComplaintID points from the original to its second-stage child.
	SecondStageComplaintID *string `gorm:"type:text" json:"second_stage_complaint_id,omitempty"`

	Version   int       `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is set by the service clock, never by gorm.
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// BeforeCreate generates a UUID for the complaint if none is set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// DueDate returns the deadline recorded for a stage.
func (c *Complaint) DueDate(stage Stage) (time.Time, bool) {
	if c.DueDates == nil {
		return time.Time{}, false
	}
	due, ok := c.DueDates[stage]
	return due, ok
}

// SetDueDate records the deadline of a stage.
func (c *Complaint) SetDueDate(stage Stage, due time.Time) {
	if c.DueDates == nil {
		c.DueDates = make(map[Stage]time.Time)
	}
	c.DueDates[stage] = due
}

// LatestResponse returns the most recent response, or nil if there is none.
func (c *Complaint) LatestResponse() *Response {
	if len(c.Responses) == 0 {
		return nil
	}
	return &c.Responses[len(c.Responses)-1]
}

// IsFrozen reports whether a second-stage complaint has taken over this thread.
func (c *Complaint) IsFrozen() bool {
	return c.SecondStageComplaintID != nil
}

// Response is a handler's reply to a complaint. Comment is internal only.
type Response struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ComplaintID   string    `gorm:"type:text;not null;index" json:"complaint_id"`
	ResponderID   string    `gorm:"type:text;not null" json:"responder_id"`
	ResponderRole Role      `gorm:"type:text;not null" json:"responder_role"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	Comment       string    `gorm:"type:text" json:"-"`
	Status        Status    `gorm:"type:text;not null" json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// EscalationEntry records one move of a complaint up the ladder.
type EscalationEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID string    `gorm:"type:text;not null;index" json:"complaint_id"`
	FromHandler Handler   `gorm:"type:text;not null" json:"from_handler"`
	ToHandler   Handler   `gorm:"type:text;not null" json:"to_handler"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolution is the snapshot frozen when a citizen accepts a response.
type Resolution struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	ComplaintID  string    `gorm:"type:text;not null;uniqueIndex" json:"complaint_id"`
	ResolvedBy   string    `gorm:"type:text;not null" json:"resolved_by"`
	ResolverRole Role      `gorm:"type:text;not null" json:"resolver_role"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	ResolvedAt   time.Time `json:"resolved_at"`
}
