package complaint

import (
	"time"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// Transition describes the single step a stage can take up the ladder.
type Transition struct {
	Next           models.Stage
	NextHandler    models.Handler
	CrossesHandler bool
}

// transitions has no entry for kentiba, which is terminal.
var transitions = map[models.Stage]Transition{
	models.StageStakeholderFirst:  {models.StageStakeholderSecond, models.HandlerStakeholderOffice, false},
	models.StageStakeholderSecond: {models.StageWeredaFirst, models.HandlerWeredaAntiCorruption, true},
	models.StageWeredaFirst:       {models.StageWeredaSecond, models.HandlerWeredaAntiCorruption, false},
	models.StageWeredaSecond:      {models.StageKifleketemaFirst, models.HandlerKifleketemaAntiCorruption, true},
	models.StageKifleketemaFirst:  {models.StageKifleketemaSecond, models.HandlerKifleketemaAntiCorruption, false},
	models.StageKifleketemaSecond: {models.StageKentiba, models.HandlerKentibaBiro, true},
}

// NextStage looks up the transition out of stage. ok is false for kentiba
// and unknown stages.
func NextStage(stage models.Stage) (t Transition, ok bool) {
	t, ok = transitions[stage]
	return t, ok
}

// ResponseWindow is how long a handler tier has to respond at each stage.
// Kentiba Biro has no window.
func ResponseWindow(h models.Handler) (time.Duration, bool) {
	switch h {
	case models.HandlerStakeholderOffice:
		return config.StakeholderResponseWindow, true
	case models.HandlerWeredaAntiCorruption:
		return config.WeredaResponseWindow, true
	case models.HandlerKifleketemaAntiCorruption:
		return config.KifleketemaResponseWindow, true
	}
	return 0, false
}

// HandlerForStage returns the tier that owns a stage.
func HandlerForStage(stage models.Stage) models.Handler {
	switch stage {
	case models.StageStakeholderFirst, models.StageStakeholderSecond:
		return models.HandlerStakeholderOffice
	case models.StageWeredaFirst, models.StageWeredaSecond:
		return models.HandlerWeredaAntiCorruption
	case models.StageKifleketemaFirst, models.StageKifleketemaSecond:
		return models.HandlerKifleketemaAntiCorruption
	}
	return models.HandlerKentibaBiro
}

// CanEscalate applies the eligibility rule to the complaint's current stage:
// the stage deadline has passed, or the handler has already answered more
// times than the stage index.
func CanEscalate(c *models.Complaint, now time.Time) bool {
	if c.Status == models.StatusResolved {
		return false
	}
	if _, ok := NextStage(c.Stage); !ok {
		return false
	}
	if due, ok := c.DueDate(c.Stage); ok && now.After(due) {
		return true
	}
	return len(c.Responses) > c.Stage.Index()
}

// setStageDeadline records the deadline of the complaint's current stage.
func setStageDeadline(c *models.Complaint, now time.Time) {
	if window, ok := ResponseWindow(c.CurrentHandler); ok {
		c.SetDueDate(c.Stage, now.Add(window))
	}
}
