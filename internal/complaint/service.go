// Package complaint implements the complaint lifecycle: submission, handler
// responses, citizen acceptance, and escalation up the fixed ladder
// stakeholder office → Wereda → Kifleketema → Kentiba Biro.
package complaint

import (
	"context"
	"log"
	"time"

	"grievance/backend/internal/metrics"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role models.Role
}

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Locker  storage.Locker
	Now     func() time.Time
}

// NewService creates a new complaint service. A nil locker disables
// cross-process locking.
func NewService(s storage.Storage, l storage.Locker) *Service {
	if l == nil {
		l = storage.NopLocker{}
	}
	return &Service{Storage: s, Locker: l, Now: time.Now}
}

func (s *Service) now() time.Time {
	return s.Now().UTC()
}

// mutate runs fn for one complaint under the complaint lock and inside a
// store transaction, and counts failures by code.
func (s *Service) mutate(ctx context.Context, op, complaintID string, fn func(tx storage.Storage) error) error {
	err := s.mutateLocked(ctx, complaintID, fn)
	if err != nil {
		metrics.Rejections.WithLabelValues(op, string(CodeOf(err))).Inc()
	}
	return err
}

func (s *Service) mutateLocked(ctx context.Context, complaintID string, fn func(tx storage.Storage) error) error {
	unlock, err := s.Locker.Lock(ctx, complaintID)
	if err != nil {
		return fromStore(err, "complaint lock")
	}
	defer unlock()

	return fromStore(s.Storage.Atomic(ctx, fn), "complaint")
}

func loadComplaint(ctx context.Context, tx storage.Storage, id string) (*models.Complaint, error) {
	c, err := tx.GetComplaint(ctx, id)
	if err != nil {
		return nil, fromStore(err, "complaint "+id)
	}
	return c, nil
}

func requireOwner(actor Actor, c *models.Complaint) error {
	if actor.Role != models.RoleCitizen || actor.ID != c.CitizenID {
		return newError(CodeUnauthorized, "only the citizen who submitted complaint %s can do this", c.ID)
	}
	return nil
}

// Submit files a new complaint against a stakeholder office. It starts at
// stakeholder_first with the stakeholder response window.
func (s *Service) Submit(ctx context.Context, actor Actor, in SubmitInput) (*models.Complaint, error) {
	if actor.Role != models.RoleCitizen {
		return nil, newError(CodeUnauthorized, "only citizens can submit complaints")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Complaint{
		ID:                  uuid.New().String(),
		CitizenID:           actor.ID,
		Title:               in.Title,
		Description:         in.Description,
		StakeholderOfficeID: in.StakeholderOfficeID,
		Location:            in.Location,
		Attachments:         in.Attachments,
		Stage:               models.StageStakeholderFirst,
		CurrentHandler:      models.HandlerStakeholderOffice,
		Status:              models.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	setStageDeadline(c, now)

	err := s.mutate(ctx, "submit", c.ID, func(tx storage.Storage) error {
		office, err := tx.GetUser(ctx, in.StakeholderOfficeID)
		if err != nil {
			return fromStore(err, "stakeholder office "+in.StakeholderOfficeID)
		}
		if office.Role != models.RoleStakeholderOffice {
			return newError(CodeNotFound, "stakeholder office %s not found", in.StakeholderOfficeID)
		}
		if err := tx.CreateComplaint(ctx, c); err != nil {
			return fromStore(err, "complaint")
		}
		return s.countSubmission(ctx, tx, c.StakeholderOfficeID, models.RoleStakeholderOffice)
	})
	if err != nil {
		return nil, err
	}

	metrics.Submissions.Inc()
	log.Printf("INFO: Complaint %s submitted against office %s", c.ID, c.StakeholderOfficeID)
	return c, nil
}

// Respond appends a handler response. Only the tier currently holding the
// complaint may answer, and at stakeholder level only the assigned office.
func (s *Service) Respond(ctx context.Context, actor Actor, id string, in RespondInput) (*models.Complaint, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out *models.Complaint
	err := s.mutate(ctx, "respond", id, func(tx storage.Storage) error {
		c, err := loadComplaint(ctx, tx, id)
		if err != nil {
			return err
		}
		if actor.Role != c.CurrentHandler.Role() {
			return newError(CodeUnauthorized, "complaint %s is handled by %s", c.ID, c.CurrentHandler)
		}
		if c.CurrentHandler == models.HandlerStakeholderOffice && actor.ID != c.StakeholderOfficeID {
			return newError(CodeUnauthorized, "complaint %s is assigned to another office", c.ID)
		}
		if c.Status == models.StatusResolved {
			return ErrAlreadyResolved
		}
		if c.IsFrozen() {
			return newError(CodeValidation, "complaint %s continues as second-stage complaint %s", c.ID, *c.SecondStageComplaintID)
		}

		now := s.now()
		c.Responses = append(c.Responses, models.Response{
			ComplaintID:   c.ID,
			ResponderID:   actor.ID,
			ResponderRole: actor.Role,
			Body:          in.Body,
			Comment:       in.Comment,
			Status:        models.StatusInProgress,
			CreatedAt:     now,
		})
		c.Status = models.StatusInProgress
		c.UpdatedAt = now
		if err := tx.PutComplaint(ctx, c); err != nil {
			return fromStore(err, "complaint "+c.ID)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Responses.WithLabelValues(string(actor.Role)).Inc()
	return out, nil
}

// Accept resolves the complaint with its latest response and credits the
// responder with the resolution.
func (s *Service) Accept(ctx context.Context, actor Actor, id string) (*models.Complaint, error) {
	var out *models.Complaint
	err := s.mutate(ctx, "accept", id, func(tx storage.Storage) error {
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
			return newError(CodeValidation, "complaint %s continues as second-stage complaint %s", c.ID, *c.SecondStageComplaintID)
		}
		latest := c.LatestResponse()
		if latest == nil {
			return newError(CodeValidation, "complaint %s has no response to accept", c.ID)
		}

		now := s.now()
		c.Status = models.StatusResolved
		c.UpdatedAt = now
		c.Resolution = &models.Resolution{
			ComplaintID:  c.ID,
			ResolvedBy:   latest.ResponderID,
			ResolverRole: latest.ResponderRole,
			Text:         latest.Body,
			ResolvedAt:   now,
		}
		if err := tx.PutComplaint(ctx, c); err != nil {
			return fromStore(err, "complaint "+c.ID)
		}

		p, err := loadPerformance(ctx, tx, latest.ResponderID, latest.ResponderRole)
		if err != nil {
			return err
		}
		p.RecordResolution(now.Sub(c.CreatedAt).Hours() / 24)
		if err := tx.PutPerformance(ctx, p); err != nil {
			return fromStore(err, "office performance")
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Resolutions.WithLabelValues(string(out.Resolution.ResolverRole)).Inc()
	log.Printf("INFO: Complaint %s resolved by %s (%s)", out.ID, out.Resolution.ResolvedBy, out.Resolution.ResolverRole)
	return out, nil
}

// Get returns a complaint the actor is allowed to see.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*models.Complaint, error) {
	c, err := loadComplaint(ctx, s.Storage, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, c) {
		// do not reveal that the complaint exists
		return nil, newError(CodeNotFound, "complaint %s not found", id)
	}
	return c, nil
}

func canView(actor Actor, c *models.Complaint) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCitizen:
		return c.CitizenID == actor.ID
	case models.RoleStakeholderOffice:
		return c.StakeholderOfficeID == actor.ID
	}
	if c.CurrentHandler.Role() == actor.Role {
		return true
	}
	for _, r := range c.Responses {
		if r.ResponderID == actor.ID {
			return true
		}
	}
	return false
}

// ListResult is one page of complaints plus the total number matching.
type ListResult struct {
	Complaints []models.Complaint `json:"complaints"`
	Total      int64              `json:"total"`
}

// List returns complaints matching f, narrowed to what the actor may see.
func (s *Service) List(ctx context.Context, actor Actor, f storage.ComplaintFilter, srt storage.Sort, p storage.Page) (*ListResult, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCitizen:
		f.CitizenID = actor.ID
	case models.RoleStakeholderOffice:
		f.StakeholderOfficeID = actor.ID
	default:
		if !actor.Role.IsHandler() {
			return nil, newError(CodeUnauthorized, "role %s cannot list complaints", actor.Role)
		}
		f.Handler = models.Handler(actor.Role)
	}

	complaints, err := s.Storage.FindComplaints(ctx, f, srt, p)
	if err != nil {
		return nil, fromStore(err, "complaints")
	}
	total, err := s.Storage.CountComplaints(ctx, f)
	if err != nil {
		return nil, fromStore(err, "complaints")
	}
	return &ListResult{Complaints: complaints, Total: total}, nil
}
