package models

import "time"

// OfficePerformance aggregates how an office (or officer) of a given role
// handles complaints. Counters only ever grow.
type OfficePerformance struct {
	ID                    uint    `gorm:"primaryKey" json:"-"`
	OfficeID              string  `gorm:"type:text;not null;uniqueIndex:idx_office_role" json:"office_id"`
	OfficeRole            Role    `gorm:"type:text;not null;uniqueIndex:idx_office_role" json:"office_role"`
	TotalComplaints       int     `gorm:"not null;default:0" json:"total_complaints"`
	ResolvedComplaints    int     `gorm:"not null;default:0" json:"resolved_complaints"`
	EscalatedComplaints   int     `gorm:"not null;default:0" json:"escalated_complaints"`
	AverageResolutionTime float64 `gorm:"not null;default:0" json:"average_resolution_time"` // days

	FailureRecords []FailureRecord `gorm:"foreignKey:PerformanceID" json:"failure_records"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordResolution folds one resolution sample (in days) into the running mean.
func (p *OfficePerformance) RecordResolution(days float64) {
	p.ResolvedComplaints++
	n := float64(p.ResolvedComplaints)
	p.AverageResolutionTime = (p.AverageResolutionTime*(n-1) + days) / n
}

// FailureRecord notes one cross-handler escalation charged to an office.
type FailureRecord struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	PerformanceID uint      `gorm:"not null;index" json:"-"`
	ComplaintID   string    `gorm:"type:text;not null" json:"complaint_id"`
	FromStage     Stage     `gorm:"type:text;not null" json:"from_stage"`
	ToStage       Stage     `gorm:"type:text;not null" json:"to_stage"`
	Reason        string    `gorm:"type:text;not null" json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}
