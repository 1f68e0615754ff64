package storage

import (
	"fmt"
	"strings"

	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
)

// ComplaintFilter narrows a complaint listing. Empty fields match everything.
type ComplaintFilter struct {
	CitizenID           string
	StakeholderOfficeID string
	Stage               models.Stage
	Handler             models.Handler
	Status              models.Status
}

// Sortable complaint fields.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortStage     = "stage"
)

// Sort orders a complaint listing.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads "field" or "-field" (descending). An empty string sorts
// newest first.
func ParseSort(raw string) (Sort, error) {
	if raw == "" {
		return Sort{Field: SortCreatedAt, Desc: true}, nil
	}
	s := Sort{Field: raw}
	if strings.HasPrefix(raw, "-") {
		s = Sort{Field: raw[1:], Desc: true}
	}
	switch s.Field {
	case SortCreatedAt, SortUpdatedAt, SortStage:
		return s, nil
	}
	return Sort{}, fmt.Errorf("unsupported sort field %q", s.Field)
}

func (s Sort) orderClause() string {
	dir := "asc"
	if s.Desc {
		dir = "desc"
	}
	switch s.Field {
	case SortUpdatedAt:
		return "updated_at " + dir + ", id asc"
	case SortStage:
		var b strings.Builder
		b.WriteString("CASE stage")
		for i, st := range models.Stages {
			fmt.Fprintf(&b, " WHEN '%s' THEN %d", st, i)
		}
		b.WriteString(" END " + dir + ", created_at asc, id asc")
		return b.String()
	default:
		return "created_at " + dir + ", id asc"
	}
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = config.DefaultPageSize
	}
	if p.Limit > config.MaxPageSize {
		p.Limit = config.MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
