package complaint

import (
	"context"
	"log"
	"time"

	"grievance/backend/internal/config"
	"grievance/backend/internal/metrics"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// Escalate moves a complaint one stage up at the citizen's request.
//
// Within-handler steps (first → second at the same tier) only add a history
// entry. Cross-handler steps also charge the tier that failed to resolve the
// complaint: its escalated counter grows by one and a failure record is
// appended to its performance record.
func (s *Service) Escalate(ctx context.Context, actor Actor, id, reason string) (*models.Complaint, error) {
	if reason == "" {
		reason = config.DefaultEscalationReason
	}

	var (
		out  *models.Complaint
		from models.Stage
		step Transition
	)
	err := s.mutate(ctx, "escalate", id, func(tx storage.Storage) error {
		c, err := loadComplaint(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(actor, c); err != nil {
			return err
		}
		if c.Status == models.StatusResolved {
			return ErrAlreadyResolved
		}
		if c.IsFrozen() {
			return newError(CodeEscalationNotAllowed, "complaint %s continues as second-stage complaint %s", c.ID, *c.SecondStageComplaintID)
		}
		var ok bool
		step, ok = NextStage(c.Stage)
		if !ok {
			return newError(CodeTerminalStage, "complaint %s is already at %s", c.ID, c.Stage)
		}

		now := s.now()
		if !CanEscalate(c, now) {
			return newError(CodeEscalationNotAllowed, "wait until the %s deadline passes or the handler responds", c.Stage)
		}

		from = c.Stage
		fromHandler := c.CurrentHandler
		c.Stage = step.Next
		c.CurrentHandler = step.NextHandler
		c.Status = models.StatusPending
		c.UpdatedAt = now
		setStageDeadline(c, now)
		c.EscalationHistory = append(c.EscalationHistory, models.EscalationEntry{
			ComplaintID: c.ID,
			FromHandler: fromHandler,
			ToHandler:   step.NextHandler,
			Reason:      reason,
			CreatedAt:   now,
		})
		if err := tx.PutComplaint(ctx, c); err != nil {
			return fromStore(err, "complaint "+c.ID)
		}

		if step.CrossesHandler {
			if err := s.chargeEscalation(ctx, tx, c, fromHandler, from, reason, now); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := metrics.KindWithinHandler
	if step.CrossesHandler {
		kind = metrics.KindCrossHandler
	}
	metrics.Escalations.WithLabelValues(string(from), string(out.Stage), kind).Inc()
	log.Printf("INFO: Complaint %s escalated %s -> %s (%s)", out.ID, from, out.Stage, kind)
	return out, nil
}

// chargeEscalation records a cross-handler escalation against the office that
// held the complaint.
func (s *Service) chargeEscalation(ctx context.Context, tx storage.Storage, c *models.Complaint, failed models.Handler, from models.Stage, reason string, now time.Time) error {
	officeID, ok, err := accountableOffice(ctx, tx, c, failed)
	if err != nil || !ok {
		return err
	}

	p, err := loadPerformance(ctx, tx, officeID, failed.Role())
	if err != nil {
		return err
	}
	p.EscalatedComplaints++
	p.FailureRecords = append(p.FailureRecords, models.FailureRecord{
		ComplaintID: c.ID,
		FromStage:   from,
		ToStage:     c.Stage,
		Reason:      reason,
		CreatedAt:   now,
	})
	if err := tx.PutPerformance(ctx, p); err != nil {
		return fromStore(err, "office performance")
	}
	return nil
}
