package config

import "time"

const (
	// Response windows per handler tier
	StakeholderResponseWindow = 3 * 24 * time.Hour
	WeredaResponseWindow      = 5 * 24 * time.Hour
	KifleketemaResponseWindow = 7 * 24 * time.Hour

	// Escalation
	DefaultEscalationReason = "Complaint was not resolved within the allowed response time"
	SecondStageReason       = "Citizen opened a second-stage complaint after an unsatisfactory response"
	ComplaintLockTTL        = 10 * time.Second
	ComplaintLockKeyPrefix  = "complaint-lock:"

	// Listing
	DefaultPageSize = 20
	MaxPageSize     = 100
)
