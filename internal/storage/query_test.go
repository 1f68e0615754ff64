package storage

import (
	"context"
	"testing"

	"grievance/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw     string
		want    Sort
		wantErr bool
	}{
		{"", Sort{Field: SortCreatedAt, Desc: true}, false},
		{"created_at", Sort{Field: SortCreatedAt}, false},
		{"-updated_at", Sort{Field: SortUpdatedAt, Desc: true}, false},
		{"stage", Sort{Field: SortStage}, false},
		{"title", Sort{}, true},
		{"-; DROP TABLE complaints", Sort{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSort(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortOrderClause_StageUsesLadderOrder(t *testing.T) {
	clause := Sort{Field: SortStage, Desc: true}.orderClause()

	assert.Contains(t, clause, "WHEN 'stakeholder_first' THEN 0")
	assert.Contains(t, clause, "WHEN 'kentiba' THEN 6")
	assert.Contains(t, clause, "END desc")
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Limit: config.DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Limit: config.MaxPageSize, Offset: 0}, Page{Limit: 1000, Offset: -5}.Normalize())
	assert.Equal(t, Page{Limit: 5, Offset: 10}, Page{Limit: 5, Offset: 10}.Normalize())
}

func TestNopLocker(t *testing.T) {
	unlock, err := NopLocker{}.Lock(context.Background(), "any")
	require.NoError(t, err)
	unlock()
}

func TestServiceLocker_WithoutRedisIsNop(t *testing.T) {
	s := NewStorageService(nil, nil)

	_, ok := s.Locker().(NopLocker)

	assert.True(t, ok)
}
