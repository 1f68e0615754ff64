package models

// Stage is the position of a complaint on the escalation ladder.
type Stage string

const (
	StageStakeholderFirst  Stage = "stakeholder_first"
	StageStakeholderSecond Stage = "stakeholder_second"
	StageWeredaFirst       Stage = "wereda_first"
	StageWeredaSecond      Stage = "wereda_second"
	StageKifleketemaFirst  Stage = "kifleketema_first"
	StageKifleketemaSecond Stage = "kifleketema_second"
	StageKentiba           Stage = "kentiba"
)

// Stages lists every stage in ladder order.
var Stages = []Stage{
	StageStakeholderFirst,
	StageStakeholderSecond,
	StageWeredaFirst,
	StageWeredaSecond,
	StageKifleketemaFirst,
	StageKifleketemaSecond,
	StageKentiba,
}

// Index returns the position of the stage in ladder order, or -1 if unknown.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the seven known stages.
func (s Stage) Valid() bool { return s.Index() >= 0 }

// Handler is the administrative tier currently responsible for a complaint.
type Handler string

const (
	HandlerStakeholderOffice         Handler = "stakeholder_office"
	HandlerWeredaAntiCorruption      Handler = "wereda_anti_corruption"
	HandlerKifleketemaAntiCorruption Handler = "kifleketema_anti_corruption"
	HandlerKentibaBiro               Handler = "kentiba_biro"
)

// Role returns the user role that acts for this handler.
func (h Handler) Role() Role { return Role(h) }

// Valid reports whether h is one of the four handler tiers.
func (h Handler) Valid() bool {
	switch h {
	case HandlerStakeholderOffice, HandlerWeredaAntiCorruption, HandlerKifleketemaAntiCorruption, HandlerKentibaBiro:
		return true
	}
	return false
}

// Status is the working state of a complaint.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusEscalated  Status = "escalated"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusEscalated:
		return true
	}
	return false
}

// Role is the role an authenticated actor holds.
type Role string

const (
	RoleCitizen                   Role = "citizen"
	RoleStakeholderOffice         Role = Role(HandlerStakeholderOffice)
	RoleWeredaAntiCorruption      Role = Role(HandlerWeredaAntiCorruption)
	RoleKifleketemaAntiCorruption Role = Role(HandlerKifleketemaAntiCorruption)
	RoleKentibaBiro               Role = Role(HandlerKentibaBiro)
	RoleAdmin                     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAdmin || Handler(r).Valid()
}

// IsHandler reports whether the role acts as one of the handler tiers.
func (r Role) IsHandler() bool { return Handler(r).Valid() }
