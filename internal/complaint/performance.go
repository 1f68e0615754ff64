package complaint

import (
	"context"
	"errors"
	"log"

	"grievance/backend/internal/metrics"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// accountableOffice picks the performance record owner for a handler tier.
//
// At stakeholder level it is the complaint's own office. Above that no
// officer is assigned to individual complaints, so the first officer holding
// the role is charged. ok is false when nobody holds the role; the metric
// update is then skipped.
func accountableOffice(ctx context.Context, tx storage.Storage, c *models.Complaint, h models.Handler) (officeID string, ok bool, err error) {
	if h == models.HandlerStakeholderOffice {
		return c.StakeholderOfficeID, true, nil
	}
	u, err := tx.FirstUserWithRole(ctx, h.Role())
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("WARN: No %s officer registered; skipping performance update for complaint %s", h, c.ID)
		metrics.MetricWriteSkips.WithLabelValues(string(h)).Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, fromStore(err, "officer directory")
	}
	return u.ID, true, nil
}

// loadPerformance returns the stored record or a fresh one for first use.
func loadPerformance(ctx context.Context, tx storage.Storage, officeID string, role models.Role) (*models.OfficePerformance, error) {
	p, err := tx.GetPerformance(ctx, officeID, role)
	if errors.Is(err, storage.ErrNotFound) {
		return &models.OfficePerformance{OfficeID: officeID, OfficeRole: role}, nil
	}
	if err != nil {
		return nil, fromStore(err, "office performance")
	}
	return p, nil
}

func (s *Service) countSubmission(ctx context.Context, tx storage.Storage, officeID string, role models.Role) error {
	p, err := loadPerformance(ctx, tx, officeID, role)
	if err != nil {
		return err
	}
	p.TotalComplaints++
	if err := tx.PutPerformance(ctx, p); err != nil {
		return fromStore(err, "office performance")
	}
	return nil
}

// Performance returns the record of an office for a role. Citizens cannot
// read performance data; offices can read their own.
func (s *Service) Performance(ctx context.Context, actor Actor, officeID string, role models.Role) (*models.OfficePerformance, error) {
	switch {
	case actor.Role == models.RoleCitizen:
		return nil, newError(CodeUnauthorized, "citizens cannot view office performance")
	case actor.Role == models.RoleStakeholderOffice && actor.ID != officeID:
		return nil, newError(CodeUnauthorized, "offices can only view their own performance")
	}
	if !role.IsHandler() {
		return nil, newError(CodeValidation, "unknown office role %q", role)
	}

	p, err := s.Storage.GetPerformance(ctx, officeID, role)
	if err != nil {
		return nil, fromStore(err, "performance record for "+officeID)
	}
	return p, nil
}
