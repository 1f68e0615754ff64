package complaint

import (
	"context"
	"log"
	"time"

	"grievance/backend/internal/config"
	"grievance/backend/internal/metrics"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SubmitSecondStage opens a linked second-stage complaint once the handler of
// a first-stage complaint has answered without resolving it. The original is
// frozen as escalated and the new complaint becomes the live thread.
func (s *Service) SubmitSecondStage(ctx context.Context, actor Actor, originalID string, in SecondStageInput) (*models.Complaint, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var child *models.Complaint
	err := s.mutate(ctx, "second_stage", originalID, func(tx storage.Storage) error {
		orig, err := loadComplaint(ctx, tx, originalID)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, orig); err != nil {
			return err
		}
		if orig.Stage != models.StageStakeholderFirst && orig.Stage != models.StageWeredaFirst {
			return newError(CodeValidation, "only stakeholder_first or wereda_first complaints can open a second stage, complaint is at %s", orig.Stage)
		}
		if orig.IsFrozen() {
			return newError(CodeValidation, "complaint %s already has second-stage complaint %s", orig.ID, *orig.SecondStageComplaintID)
		}
		if orig.Status != models.StatusInProgress {
			return newError(CodeValidation, "complaint %s must be in progress, it is %s", orig.ID, orig.Status)
		}
		if len(orig.Responses) == 0 {
			return newError(CodeValidation, "complaint %s has no response yet", orig.ID)
		}

		step, _ := NextStage(orig.Stage)
		above, _ := NextStage(step.Next)
		now := s.now()

		child = newSecondStage(orig, in, step.Next, now)
		if err := tx.CreateComplaint(ctx, child); err != nil {
			return fromStore(err, "second-stage complaint")
		}

		orig.SecondStageComplaintID = &child.ID
		orig.Stage = child.Stage
		orig.Status = models.StatusEscalated
		orig.UpdatedAt = now
		orig.EscalationHistory = append(orig.EscalationHistory, models.EscalationEntry{
			ComplaintID: orig.ID,
			FromHandler: child.CurrentHandler,
			ToHandler:   above.NextHandler,
			Reason:      config.SecondStageReason,
			CreatedAt:   now,
		})
		if err := tx.PutComplaint(ctx, orig); err != nil {
			return fromStore(err, "complaint "+orig.ID)
		}

		officeID, ok, err := accountableOffice(ctx, tx, child, child.CurrentHandler)
		if err != nil || !ok {
			return err
		}
		return s.countSubmission(ctx, tx, officeID, child.CurrentHandler.Role())
	})
	if err != nil {
		return nil, err
	}

	metrics.SecondStageSubmissions.WithLabelValues(string(child.Stage)).Inc()
	log.Printf("INFO: Second-stage complaint %s opened from %s at %s", child.ID, originalID, child.Stage)
	return child, nil
}

// newSecondStage builds the follow-up complaint for orig at stage. Fields left
// empty in the input are taken from the original.
func newSecondStage(orig *models.Complaint, in SecondStageInput, stage models.Stage, now time.Time) *models.Complaint {
	origID := orig.ID
	child := &models.Complaint{
		ID:                  uuid.New().String(),
		CitizenID:           orig.CitizenID,
		Title:               firstNonEmpty(in.Title, orig.Title),
		Description:         firstNonEmpty(in.Description, orig.Description),
		StakeholderOfficeID: orig.StakeholderOfficeID,
		Location:            firstNonEmpty(in.Location, orig.Location),
		Attachments:         append(pq.StringArray(nil), orig.Attachments...),
		Stage:               stage,
		CurrentHandler:      orig.CurrentHandler,
		Status:              models.StatusPending,
		RelatedComplaintID:  &origID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if len(in.Attachments) > 0 {
		child.Attachments = append(pq.StringArray(nil), in.Attachments...)
	}
	setStageDeadline(child, now)
	return child
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
