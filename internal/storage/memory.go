package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"grievance/backend/internal/models"

	"github.com/google/uuid"
)

type performanceKey struct {
	officeID string
	role     models.Role
}

// memoryState is the data behind a MemoryStore. Values are private copies;
// callers only ever see clones.
type memoryState struct {
	complaints  map[string]*models.Complaint
	performance map[performanceKey]*models.OfficePerformance
	users       map[string]*models.User
	nextID      uint
}

// MemoryStore is an in-process Storage used in memory mode and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		complaints:  make(map[string]*models.Complaint),
		performance: make(map[performanceKey]*models.OfficePerformance),
		users:       make(map[string]*models.User),
	}}
}

// Atomic runs fn against a copy of the data and swaps it in only on success.
func (m *MemoryStore) Atomic(ctx context.Context, fn func(tx Storage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) locked(fn func(s *memoryState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.state)
}

func (m *MemoryStore) GetComplaint(ctx context.Context, id string) (c *models.Complaint, err error) {
	err = m.locked(func(s *memoryState) error { c, err = s.getComplaint(id); return err })
	return c, err
}

func (m *MemoryStore) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return m.locked(func(s *memoryState) error { return s.createComplaint(c) })
}

func (m *MemoryStore) PutComplaint(ctx context.Context, c *models.Complaint) error {
	return m.locked(func(s *memoryState) error { return s.putComplaint(c) })
}

func (m *MemoryStore) FindComplaints(ctx context.Context, f ComplaintFilter, srt Sort, p Page) (out []models.Complaint, err error) {
	err = m.locked(func(s *memoryState) error { out = s.findComplaints(f, srt, p); return nil })
	return out, err
}

func (m *MemoryStore) CountComplaints(ctx context.Context, f ComplaintFilter) (n int64, err error) {
	err = m.locked(func(s *memoryState) error { n = s.countComplaints(f); return nil })
	return n, err
}

func (m *MemoryStore) GetPerformance(ctx context.Context, officeID string, role models.Role) (p *models.OfficePerformance, err error) {
	err = m.locked(func(s *memoryState) error { p, err = s.getPerformance(officeID, role); return err })
	return p, err
}

func (m *MemoryStore) PutPerformance(ctx context.Context, p *models.OfficePerformance) error {
	return m.locked(func(s *memoryState) error { s.putPerformance(p); return nil })
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (u *models.User, err error) {
	err = m.locked(func(s *memoryState) error { u, err = s.getUser(id); return err })
	return u, err
}

func (m *MemoryStore) FirstUserWithRole(ctx context.Context, role models.Role) (u *models.User, err error) {
	err = m.locked(func(s *memoryState) error { u, err = s.firstUserWithRole(role); return err })
	return u, err
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *models.User) error {
	return m.locked(func(s *memoryState) error { s.saveUser(u); return nil })
}

// memoryTx is the view handed to Atomic callbacks. The enclosing
// MemoryStore already holds the lock.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) Atomic(ctx context.Context, fn func(tx Storage) error) error { return fn(t) }

func (t *memoryTx) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	return t.state.getComplaint(id)
}

func (t *memoryTx) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return t.state.createComplaint(c)
}

func (t *memoryTx) PutComplaint(ctx context.Context, c *models.Complaint) error {
	return t.state.putComplaint(c)
}

func (t *memoryTx) FindComplaints(ctx context.Context, f ComplaintFilter, s Sort, p Page) ([]models.Complaint, error) {
	return t.state.findComplaints(f, s, p), nil
}

func (t *memoryTx) CountComplaints(ctx context.Context, f ComplaintFilter) (int64, error) {
	return t.state.countComplaints(f), nil
}

func (t *memoryTx) GetPerformance(ctx context.Context, officeID string, role models.Role) (*models.OfficePerformance, error) {
	return t.state.getPerformance(officeID, role)
}

func (t *memoryTx) PutPerformance(ctx context.Context, p *models.OfficePerformance) error {
	t.state.putPerformance(p)
	return nil
}

func (t *memoryTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	return t.state.getUser(id)
}

func (t *memoryTx) FirstUserWithRole(ctx context.Context, role models.Role) (*models.User, error) {
	return t.state.firstUserWithRole(role)
}

func (t *memoryTx) SaveUser(ctx context.Context, u *models.User) error {
	t.state.saveUser(u)
	return nil
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		complaints:  make(map[string]*models.Complaint, len(s.complaints)),
		performance: make(map[performanceKey]*models.OfficePerformance, len(s.performance)),
		users:       make(map[string]*models.User, len(s.users)),
		nextID:      s.nextID,
	}
	for k, v := range s.complaints {
		out.complaints[k] = cloneComplaint(v)
	}
	for k, v := range s.performance {
		out.performance[k] = clonePerformance(v)
	}
	for k, v := range s.users {
		u := *v
		out.users[k] = &u
	}
	return out
}

func (s *memoryState) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memoryState) getComplaint(id string) (*models.Complaint, error) {
	c, ok := s.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComplaint(c), nil
}

func (s *memoryState) createComplaint(c *models.Complaint) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	c.Version = 1
	s.assignChildIDs(c)
	s.complaints[c.ID] = cloneComplaint(c)
	return nil
}

func (s *memoryState) putComplaint(c *models.Complaint) error {
	stored, ok := s.complaints[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrConflict
	}
	c.Version++
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	s.assignChildIDs(c)
	s.complaints[c.ID] = cloneComplaint(c)
	return nil
}

func (s *memoryState) assignChildIDs(c *models.Complaint) {
	for i := range c.Responses {
		if c.Responses[i].ID == 0 {
			c.Responses[i].ID = s.id()
			c.Responses[i].ComplaintID = c.ID
		}
	}
	for i := range c.EscalationHistory {
		if c.EscalationHistory[i].ID == 0 {
			c.EscalationHistory[i].ID = s.id()
			c.EscalationHistory[i].ComplaintID = c.ID
		}
	}
	if c.Resolution != nil && c.Resolution.ID == 0 {
		c.Resolution.ID = s.id()
		c.Resolution.ComplaintID = c.ID
	}
}

func (s *memoryState) matching(f ComplaintFilter) []*models.Complaint {
	var out []*models.Complaint
	for _, c := range s.complaints {
		if f.CitizenID != "" && c.CitizenID != f.CitizenID {
			continue
		}
		if f.StakeholderOfficeID != "" && c.StakeholderOfficeID != f.StakeholderOfficeID {
			continue
		}
		if f.Stage != "" && c.Stage != f.Stage {
			continue
		}
		if f.Handler != "" && c.CurrentHandler != f.Handler {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *memoryState) findComplaints(f ComplaintFilter, srt Sort, p Page) []models.Complaint {
	found := s.matching(f)
	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		var less, equal bool
		switch srt.Field {
		case SortUpdatedAt:
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		case SortStage:
			less, equal = a.Stage.Index() < b.Stage.Index(), a.Stage == b.Stage
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID < b.ID
		}
		if srt.Desc {
			return !less
		}
		return less
	})

	p = p.Normalize()
	out := make([]models.Complaint, 0, p.Limit)
	for i := p.Offset; i < len(found) && len(out) < p.Limit; i++ {
		out = append(out, *cloneComplaint(found[i]))
	}
	return out
}

func (s *memoryState) countComplaints(f ComplaintFilter) int64 {
	return int64(len(s.matching(f)))
}

func (s *memoryState) getPerformance(officeID string, role models.Role) (*models.OfficePerformance, error) {
	p, ok := s.performance[performanceKey{officeID, role}]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePerformance(p), nil
}

func (s *memoryState) putPerformance(p *models.OfficePerformance) {
	now := time.Now()
	if p.ID == 0 {
		p.ID = s.id()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	for i := range p.FailureRecords {
		if p.FailureRecords[i].ID == 0 {
			p.FailureRecords[i].ID = s.id()
			p.FailureRecords[i].PerformanceID = p.ID
		}
	}
	s.performance[performanceKey{p.OfficeID, p.OfficeRole}] = clonePerformance(p)
}

func (s *memoryState) getUser(id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memoryState) firstUserWithRole(role models.Role) (*models.User, error) {
	var first *models.User
	for _, u := range s.users {
		if u.Role != role {
			continue
		}
		if first == nil || u.ID < first.ID {
			first = u
		}
	}
	if first == nil {
		return nil, ErrNotFound
	}
	out := *first
	return &out, nil
}

func (s *memoryState) saveUser(u *models.User) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	stored := *u
	s.users[u.ID] = &stored
}

func cloneComplaint(c *models.Complaint) *models.Complaint {
	out := *c
	out.Attachments = append(c.Attachments[:0:0], c.Attachments...)
	out.Responses = append([]models.Response(nil), c.Responses...)
	out.EscalationHistory = append([]models.EscalationEntry(nil), c.EscalationHistory...)
	if c.DueDates != nil {
		out.DueDates = make(map[models.Stage]time.Time, len(c.DueDates))
		for k, v := range c.DueDates {
			out.DueDates[k] = v
		}
	}
	if c.Resolution != nil {
		r := *c.Resolution
		out.Resolution = &r
	}
	if c.RelatedComplaintID != nil {
		id := *c.RelatedComplaintID
		out.RelatedComplaintID = &id
	}
	if c.SecondStageComplaintID != nil {
		id := *c.SecondStageComplaintID
		out.SecondStageComplaintID = &id
	}
	return &out
}

func clonePerformance(p *models.OfficePerformance) *models.OfficePerformance {
	out := *p
	out.FailureRecords = append([]models.FailureRecord(nil), p.FailureRecords...)
	return &out
}
