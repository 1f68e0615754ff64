package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"grievance/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a complaint was modified by someone else
	// between read and write.
	ErrConflict = errors.New("complaint was modified concurrently")
)

// ComplaintStore persists complaints together with their append-only
// responses, escalation history and resolution.
type ComplaintStore interface {
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	CreateComplaint(ctx context.Context, c *models.Complaint) error
	// PutComplaint saves a complaint read earlier. It fails with ErrConflict if
	// the stored version no longer matches c.Version and bumps c.Version on success.
	PutComplaint(ctx context.Context, c *models.Complaint) error
	FindComplaints(ctx context.Context, f ComplaintFilter, s Sort, p Page) ([]models.Complaint, error)
	CountComplaints(ctx context.Context, f ComplaintFilter) (int64, error)
}

// PerformanceStore persists office performance records.
type PerformanceStore interface {
	GetPerformance(ctx context.Context, officeID string, role models.Role) (*models.OfficePerformance, error)
	PutPerformance(ctx context.Context, p *models.OfficePerformance) error
}

// UserDirectory resolves the offices and officers complaints are routed to.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	// FirstUserWithRole returns the user with the lowest ID holding role.
	FirstUserWithRole(ctx context.Context, role models.Role) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
}

// Storage is everything the complaint service needs from persistence.
type Storage interface {
	ComplaintStore
	PerformanceStore
	UserDirectory

	// Atomic runs fn against a transactional view of the store. Writes made
	// through tx are committed together when fn returns nil and discarded otherwise.
	Atomic(ctx context.Context, fn func(tx Storage) error) error
}

// Service is the PostgreSQL (gorm) implementation of Storage. Redis is
// optional and only used for complaint locks.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates every table the service uses.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Complaint{},
		&models.Response{},
		&models.EscalationEntry{},
		&models.Resolution{},
		&models.OfficePerformance{},
		&models.FailureRecord{},
	)
}

// Atomic runs fn inside a database transaction.
func (s *Service) Atomic(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, Redis: s.Redis})
	})
}

func (s *Service) withComplaintChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("EscalationHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Resolution")
}

// GetComplaint loads a complaint with responses, history and resolution.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.withComplaintChildren(s.DB.WithContext(ctx)).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get complaint %s: %v", id, err)
		return nil, err
	}
	return &c, nil
}

// CreateComplaint inserts a new complaint and any children it already carries.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to create complaint for office %s: %v", c.StakeholderOfficeID, err)
		return err
	}
	return nil
}

var complaintColumns = []string{
	"title", "description", "location", "attachments",
	"stage", "current_handler", "status", "due_dates",
	"related_complaint_id", "second_stage_complaint_id",
	"version", "updated_at",
}

// PutComplaint updates the complaint row under a version check and inserts
// responses, history entries and a resolution that have not been stored yet.
func (s *Service) PutComplaint(ctx context.Context, c *models.Complaint) error {
	expected := c.Version
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.Version = expected + 1
		res := tx.Model(c).
			Select(complaintColumns).
			Omit(clause.Associations).
			Where("version = ?", expected).
			Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		for i := range c.Responses {
			if c.Responses[i].ID != 0 {
				continue
			}
			c.Responses[i].ComplaintID = c.ID
			if err := tx.Create(&c.Responses[i]).Error; err != nil {
				return fmt.Errorf("append response: %w", err)
			}
		}
		for i := range c.EscalationHistory {
			if c.EscalationHistory[i].ID != 0 {
				continue
			}
			c.EscalationHistory[i].ComplaintID = c.ID
			if err := tx.Create(&c.EscalationHistory[i]).Error; err != nil {
				return fmt.Errorf("append escalation entry: %w", err)
			}
		}
		if c.Resolution != nil && c.Resolution.ID == 0 {
			c.Resolution.ComplaintID = c.ID
			if err := tx.Create(c.Resolution).Error; err != nil {
				return fmt.Errorf("store resolution: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		c.Version = expected
		if !errors.Is(err, ErrConflict) {
			log.Printf("ERROR: Failed to save complaint %s: %v", c.ID, err)
		}
		return err
	}
	return nil
}

// FindComplaints returns one page of complaints matching f.
func (s *Service) FindComplaints(ctx context.Context, f ComplaintFilter, srt Sort, p Page) ([]models.Complaint, error) {
	var complaints []models.Complaint
	db := applyFilter(s.DB.WithContext(ctx).Model(&models.Complaint{}), f)
	db = s.withComplaintChildren(db).Order(srt.orderClause())
	p = p.Normalize()
	if err := db.Limit(p.Limit).Offset(p.Offset).Find(&complaints).Error; err != nil {
		log.Printf("ERROR: Failed to list complaints: %v", err)
		return nil, err
	}
	return complaints, nil
}

// CountComplaints counts complaints matching f.
func (s *Service) CountComplaints(ctx context.Context, f ComplaintFilter) (int64, error) {
	var n int64
	if err := applyFilter(s.DB.WithContext(ctx).Model(&models.Complaint{}), f).Count(&n).Error; err != nil {
		log.Printf("ERROR: Failed to count complaints: %v", err)
		return 0, err
	}
	return n, nil
}

func applyFilter(db *gorm.DB, f ComplaintFilter) *gorm.DB {
	if f.CitizenID != "" {
		db = db.Where("citizen_id = ?", f.CitizenID)
	}
	if f.StakeholderOfficeID != "" {
		db = db.Where("stakeholder_office_id = ?", f.StakeholderOfficeID)
	}
	if f.Stage != "" {
		db = db.Where("stage = ?", f.Stage)
	}
	if f.Handler != "" {
		db = db.Where("current_handler = ?", f.Handler)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

// GetPerformance loads the record for (officeID, role) and locks its row
// for the rest of the surrounding transaction.
func (s *Service) GetPerformance(ctx context.Context, officeID string, role models.Role) (*models.OfficePerformance, error) {
	var p models.OfficePerformance
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("office_id = ? AND office_role = ?", officeID, role).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Where("performance_id = ?", p.ID).Order("id asc").Find(&p.FailureRecords).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

var performanceColumns = []string{
	"total_complaints", "resolved_complaints", "escalated_complaints",
	"average_resolution_time", "updated_at",
}

// PutPerformance creates the record on first use, otherwise updates its
// counters and appends new failure records.
func (s *Service) PutPerformance(ctx context.Context, p *models.OfficePerformance) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.ID == 0 {
			return tx.Create(p).Error
		}
		if err := tx.Model(p).Select(performanceColumns).Omit(clause.Associations).Updates(p).Error; err != nil {
			return err
		}
		for i := range p.FailureRecords {
			if p.FailureRecords[i].ID != 0 {
				continue
			}
			p.FailureRecords[i].PerformanceID = p.ID
			if err := tx.Create(&p.FailureRecords[i]).Error; err != nil {
				return fmt.Errorf("append failure record: %w", err)
			}
		}
		return nil
	})
}

// GetUser finds a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FirstUserWithRole returns the user with the lowest ID holding role.
func (s *Service) FirstUserWithRole(ctx context.Context, role models.Role) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Where("role = ?", role).Order("id asc").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser inserts or updates a user.
func (s *Service) SaveUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		return s.DB.WithContext(ctx).Create(u).Error
	}
	return s.DB.WithContext(ctx).Save(u).Error
}
