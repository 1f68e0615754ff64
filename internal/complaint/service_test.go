package complaint_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/config"
	"grievance/backend/internal/metrics"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var start = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	store *storage.MemoryStore
	svc   *complaint.Service
	now   time.Time

	citizen     complaint.Actor
	neighbour   complaint.Actor
	office      complaint.Actor
	otherOffice complaint.Actor
	wereda      complaint.Actor
	wereda2     complaint.Actor
	kifleketema complaint.Actor
	kentiba     complaint.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:         context.Background(),
		store:       storage.NewMemoryStore(),
		now:         start,
		citizen:     complaint.Actor{ID: "citizen-abebe", Role: models.RoleCitizen},
		neighbour:   complaint.Actor{ID: "citizen-hana", Role: models.RoleCitizen},
		office:      complaint.Actor{ID: "office-bole-land", Role: models.RoleStakeholderOffice},
		otherOffice: complaint.Actor{ID: "office-yeka-water", Role: models.RoleStakeholderOffice},
		wereda:      complaint.Actor{ID: "wereda-officer-1", Role: models.RoleWeredaAntiCorruption},
		wereda2:     complaint.Actor{ID: "wereda-officer-2", Role: models.RoleWeredaAntiCorruption},
		kifleketema: complaint.Actor{ID: "kifleketema-officer-1", Role: models.RoleKifleketemaAntiCorruption},
		kentiba:     complaint.Actor{ID: "kentiba-biro-1", Role: models.RoleKentibaBiro},
	}
	for _, a := range []complaint.Actor{f.citizen, f.neighbour, f.office, f.otherOffice, f.wereda2, f.wereda, f.kifleketema, f.kentiba} {
		require.NoError(t, f.store.SaveUser(f.ctx, &models.User{ID: a.ID, Name: a.ID, Role: a.Role}))
	}
	f.svc = complaint.NewService(f.store, nil)
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) submit(t *testing.T) *models.Complaint {
	t.Helper()
	c, err := f.svc.Submit(f.ctx, f.citizen, complaint.SubmitInput{
		Title:               "Title deed delayed",
		Description:         "Application filed eight months ago, no decision",
		StakeholderOfficeID: f.office.ID,
		Location:            "Bole, Wereda 03",
		Attachments:         []string{"uploads/receipt.pdf"},
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) respond(t *testing.T, actor complaint.Actor, id string) *models.Complaint {
	t.Helper()
	c, err := f.svc.Respond(f.ctx, actor, id, complaint.RespondInput{Body: "We are reviewing the file", Comment: "assigned to surveyor"})
	require.NoError(t, err)
	return c
}

func (f *fixture) performance(t *testing.T, officeID string, role models.Role) *models.OfficePerformance {
	t.Helper()
	p, err := f.store.GetPerformance(f.ctx, officeID, role)
	require.NoError(t, err)
	return p
}

func dueDate(t *testing.T, c *models.Complaint, stage models.Stage) time.Time {
	t.Helper()
	due, ok := c.DueDate(stage)
	require.True(t, ok, "no due date for %s", stage)
	return due
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	c := f.submit(t)

	assert.Equal(t, models.StageStakeholderFirst, c.Stage)
	assert.Equal(t, models.HandlerStakeholderOffice, c.CurrentHandler)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, start.Add(3*day), dueDate(t, c, models.StageStakeholderFirst))
	assert.Equal(t, []string{"uploads/receipt.pdf"}, []string(c.Attachments))
	assert.Equal(t, 1, f.performance(t, f.office.ID, models.RoleStakeholderOffice).TotalComplaints)

	stored, err := f.store.GetComplaint(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Title, stored.Title)
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t)
	valid := complaint.SubmitInput{Title: "t", Description: "d", StakeholderOfficeID: f.office.ID}

	tests := []struct {
		name  string
		actor complaint.Actor
		in    complaint.SubmitInput
		want  error
	}{
		{"office cannot submit", f.office, valid, complaint.ErrUnauthorized},
		{"missing title", f.citizen, complaint.SubmitInput{Description: "d", StakeholderOfficeID: f.office.ID}, complaint.ErrValidation},
		{"missing office", f.citizen, complaint.SubmitInput{Title: "t", Description: "d"}, complaint.ErrValidation},
		{"unknown office", f.citizen, complaint.SubmitInput{Title: "t", Description: "d", StakeholderOfficeID: "nowhere"}, complaint.ErrNotFound},
		{"target is not a stakeholder office", f.citizen, complaint.SubmitInput{Title: "t", Description: "d", StakeholderOfficeID: f.wereda.ID}, complaint.ErrNotFound},
		{"empty attachment reference", f.citizen, complaint.SubmitInput{Title: "t", Description: "d", StakeholderOfficeID: f.office.ID, Attachments: []string{""}}, complaint.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(f.ctx, tt.actor, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	n, err := f.store.CountComplaints(f.ctx, storage.ComplaintFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "rejected submissions leave nothing behind")
}

func TestSubmit_ValidationMessageNamesFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(f.ctx, f.citizen, complaint.SubmitInput{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "stakeholder_office_id is required")
}

// Escalating before the deadline with no response is refused; after the
// deadline the complaint moves to the second stakeholder stage.
func TestEscalate_WaitsForDeadline(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)

	f.advance(1 * day)
	_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	assert.ErrorIs(t, err, complaint.ErrEscalationNotAllowed)

	f.advance(3 * day)
	got, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	require.NoError(t, err)

	assert.Equal(t, models.StageStakeholderSecond, got.Stage)
	assert.Equal(t, models.HandlerStakeholderOffice, got.CurrentHandler)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, start.Add(4*day).Add(3*day), dueDate(t, got, models.StageStakeholderSecond))
	require.Len(t, got.EscalationHistory, 1)
	entry := got.EscalationHistory[0]
	assert.Equal(t, models.HandlerStakeholderOffice, entry.FromHandler)
	assert.Equal(t, models.HandlerStakeholderOffice, entry.ToHandler)
	assert.Equal(t, config.DefaultEscalationReason, entry.Reason)

	p := f.performance(t, f.office.ID, models.RoleStakeholderOffice)
	assert.Zero(t, p.EscalatedComplaints, "within-handler steps are not charged")
	assert.Empty(t, p.FailureRecords)
}

// A second-stage complaint with two responses escalates to Wereda before its
// deadline and the stakeholder office is charged once.
func TestEscalate_CrossHandlerByResponses(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)
	f.respond(t, f.office, c.ID)
	_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	require.NoError(t, err)
	f.respond(t, f.office, c.ID)
	before := testutil.ToFloat64(metrics.Escalations.WithLabelValues("stakeholder_second", "wereda_first", metrics.KindCrossHandler))

	f.advance(1 * day)
	got, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "Office keeps postponing")
	require.NoError(t, err)

	assert.Equal(t, models.StageWeredaFirst, got.Stage)
	assert.Equal(t, models.HandlerWeredaAntiCorruption, got.CurrentHandler)
	assert.Equal(t, f.now.Add(5*day), dueDate(t, got, models.StageWeredaFirst))
	require.Len(t, got.EscalationHistory, 2)
	last := got.EscalationHistory[1]
	assert.Equal(t, models.HandlerStakeholderOffice, last.FromHandler)
	assert.Equal(t, models.HandlerWeredaAntiCorruption, last.ToHandler)
	assert.Equal(t, "Office keeps postponing", last.Reason)

	p := f.performance(t, f.office.ID, models.RoleStakeholderOffice)
	assert.Equal(t, 1, p.EscalatedComplaints)
	require.Len(t, p.FailureRecords, 1)
	assert.Equal(t, c.ID, p.FailureRecords[0].ComplaintID)
	assert.Equal(t, models.StageStakeholderSecond, p.FailureRecords[0].FromStage)
	assert.Equal(t, models.StageWeredaFirst, p.FailureRecords[0].ToStage)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Escalations.WithLabelValues("stakeholder_second", "wereda_first", metrics.KindCrossHandler)))
}

func TestEscalate_FullLadderByDeadlines(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)

	var got *models.Complaint
	for i := 1; i < len(models.Stages); i++ {
		f.advance(8 * day)
		var err error
		got, err = f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, models.Stages[i], got.Stage)
		assert.Equal(t, complaint.HandlerForStage(got.Stage), got.CurrentHandler)
	}

	assert.Equal(t, models.HandlerKentibaBiro, got.CurrentHandler)
	_, hasDue := got.DueDate(models.StageKentiba)
	assert.False(t, hasDue, "kentiba has no response window")
	assert.Len(t, got.EscalationHistory, 6)

	_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	assert.ErrorIs(t, err, complaint.ErrTerminalStage)

	assert.Equal(t, 1, f.performance(t, f.office.ID, models.RoleStakeholderOffice).EscalatedComplaints)
	// first officer by ID is charged for the anti-corruption tiers
	assert.Equal(t, 1, f.performance(t, f.wereda.ID, models.RoleWeredaAntiCorruption).EscalatedComplaints)
	assert.Equal(t, 1, f.performance(t, f.kifleketema.ID, models.RoleKifleketemaAntiCorruption).EscalatedComplaints)
	_, err = f.store.GetPerformance(f.ctx, f.wereda2.ID, models.RoleWeredaAntiCorruption)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEscalate_KentibaIsAlwaysTerminal(t *testing.T) {
	tests := []struct {
		name      string
		responses int
		due       time.Duration
		hasDue    bool
	}{
		{"no responses no deadline", 0, 0, false},
		{"many responses", 12, 0, false},
		{"deadline passed", 0, -day, true},
		{"deadline ahead", 3, day, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := &models.Complaint{
				CitizenID:           f.citizen.ID,
				Title:               "t",
				Description:         "d",
				StakeholderOfficeID: f.office.ID,
				Stage:               models.StageKentiba,
				CurrentHandler:      models.HandlerKentibaBiro,
				Status:              models.StatusInProgress,
				Responses:           make([]models.Response, tt.responses),
			}
			if tt.hasDue {
				c.SetDueDate(models.StageKentiba, f.now.Add(tt.due))
			}
			require.NoError(t, f.store.CreateComplaint(f.ctx, c))

			_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")

			assert.ErrorIs(t, err, complaint.ErrTerminalStage)
		})
	}
}

func TestEscalate_ResolvedIsAlwaysRejected(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)
	f.respond(t, f.office, c.ID)
	_, err := f.svc.Accept(f.ctx, f.citizen, c.ID)
	require.NoError(t, err)

	f.advance(30 * day)
	_, err = f.svc.Escalate(f.ctx, f.citizen, c.ID, "")

	assert.ErrorIs(t, err, complaint.ErrAlreadyResolved)
}

func TestEscalate_Authorization(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)
	f.advance(4 * day)

	for _, actor := range []complaint.Actor{f.neighbour, f.office, f.wereda, {ID: f.citizen.ID, Role: models.RoleAdmin}} {
		_, err := f.svc.Escalate(f.ctx, actor, c.ID, "")
		assert.ErrorIs(t, err, complaint.ErrUnauthorized, actor.ID)
	}

	_, err := f.svc.Escalate(f.ctx, f.citizen, "missing", "")
	assert.ErrorIs(t, err, complaint.ErrNotFound)
}

func TestEscalate_NoOfficerForTierSkipsMetrics(t *testing.T) {
	f := newFixture(t)
	f.store = storage.NewMemoryStore()
	for _, a := range []complaint.Actor{f.citizen, f.office} {
		require.NoError(t, f.store.SaveUser(f.ctx, &models.User{ID: a.ID, Role: a.Role}))
	}
	f.svc.Storage = f.store
	c := f.submit(t)

	for i := 0; i < 4; i++ {
		f.advance(8 * day)
		_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
		require.NoError(t, err)
	}

	got, err := f.store.GetComplaint(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StageKifleketemaFirst, got.Stage, "escalation proceeds without an officer to charge")
}

func TestEscalate_StoreFailureRollsBackTransition(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)
	f.advance(4 * day)
	_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	require.NoError(t, err)

	f.svc.Storage = &failingStore{MemoryStore: f.store, performanceErr: errors.New("disk full")}
	f.advance(4 * day)
	_, err = f.svc.Escalate(f.ctx, f.citizen, c.ID, "")

	assert.ErrorIs(t, err, complaint.ErrStore)
	stored, getErr := f.store.GetComplaint(f.ctx, c.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StageStakeholderSecond, stored.Stage, "complaint and metrics commit together")
	assert.Len(t, stored.EscalationHistory, 1)
}

func TestEscalate_ConcurrentModificationIsConflict(t *testing.T) {
	f := newFixture(t)
	c := f.submit(t)
	f.advance(4 * day)

	f.svc.Storage = &failingStore{MemoryStore: f.store, complaintErr: storage.ErrConflict}
	_, err := f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	assert.ErrorIs(t, err, complaint.ErrConflict)

	f.svc.Storage = f.store
	f.svc.Locker = busyLocker{}
	_, err = f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
	assert.ErrorIs(t, err, complaint.ErrConflict)

	stored, _ := f.store.GetComplaint(f.ctx, c.ID)
	assert.Equal(t, models.StageStakeholderFirst, stored.Stage)
	assert.Empty(t, stored.EscalationHistory)
}

// Random interleavings of operations never move a complaint backwards.
func TestStagesNeverMoveBackwards(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		f := newFixture(t)
		rng := rand.New(rand.NewSource(seed))
		c := f.submit(t)
		last := c.Stage.Index()

		for step := 0; step < 60; step++ {
			current, err := f.store.GetComplaint(f.ctx, c.ID)
			require.NoError(t, err)
			handler := complaint.Actor{ID: f.office.ID, Role: current.CurrentHandler.Role()}
			if current.CurrentHandler != models.HandlerStakeholderOffice {
				handler.ID = "any-officer"
			}

			switch rng.Intn(5) {
			case 0:
				f.advance(time.Duration(rng.Intn(10)) * day)
			case 1:
				_, _ = f.svc.Respond(f.ctx, handler, c.ID, complaint.RespondInput{Body: "update"})
			case 2, 3:
				_, _ = f.svc.Escalate(f.ctx, f.citizen, c.ID, "")
			case 4:
				if rng.Intn(6) == 0 {
					_, _ = f.svc.Accept(f.ctx, f.citizen, c.ID)
				}
			}

			after, err := f.store.GetComplaint(f.ctx, c.ID)
			require.NoError(t, err)
			idx := after.Stage.Index()
			require.GreaterOrEqual(t, idx, last, "seed %d step %d", seed, step)
			require.LessOrEqual(t, idx, last+1, "at most one stage per operation")
			last = idx
		}
	}
}

type failingStore struct {
	*storage.MemoryStore
	complaintErr   error
	performanceErr error
}

func (s *failingStore) Atomic(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.MemoryStore.Atomic(ctx, func(tx storage.Storage) error {
		return fn(&failingTx{Storage: tx, complaintErr: s.complaintErr, performanceErr: s.performanceErr})
	})
}

type failingTx struct {
	storage.Storage
	complaintErr   error
	performanceErr error
}

func (t *failingTx) PutComplaint(ctx context.Context, c *models.Complaint) error {
	if t.complaintErr != nil {
		return t.complaintErr
	}
	return t.Storage.PutComplaint(ctx, c)
}

func (t *failingTx) PutPerformance(ctx context.Context, p *models.OfficePerformance) error {
	if t.performanceErr != nil {
		return t.performanceErr
	}
	return t.Storage.PutPerformance(ctx, p)
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, storage.ErrLocked }
