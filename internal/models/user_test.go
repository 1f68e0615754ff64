package models_test

import (
	"grievance/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{Name: "Bole Land Administration", Role: models.RoleStakeholderOffice}
	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	// Act
	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	// Assert
	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Name: "Wereda 03 officer", Role: models.RoleWeredaAntiCorruption}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID)
}

// TestComplaintBeforeCreate_UniqueIDs verifies unique UUIDs are generated for multiple complaints.
func TestComplaintBeforeCreate_UniqueIDs(t *testing.T) {
	complaints := []*models.Complaint{{Title: "a"}, {Title: "b"}, {Title: "c"}}
	seen := make(map[string]bool)

	for _, c := range complaints {
		assert.NoError(t, c.BeforeCreate(nil))
		assert.NotContains(t, seen, c.ID, "Each complaint should have a unique ID")
		seen[c.ID] = true
	}

	assert.Len(t, seen, len(complaints))
}

// TestStructTags guards the storage tags the gorm store relies on.
func TestStructTags(t *testing.T) {
	complaintType := reflect.TypeOf(models.Complaint{})

	idField, found := complaintType.FieldByName("ID")
	assert.True(t, found)
	assert.Contains(t, idField.Tag.Get("gorm"), "primaryKey")

	attachments, found := complaintType.FieldByName("Attachments")
	assert.True(t, found)
	assert.Contains(t, attachments.Tag.Get("gorm"), "type:text[]", "Attachments should use PostgreSQL array type")

	dueDates, found := complaintType.FieldByName("DueDates")
	assert.True(t, found)
	assert.Contains(t, dueDates.Tag.Get("gorm"), "serializer:json")

	comment, found := reflect.TypeOf(models.Response{}).FieldByName("Comment")
	assert.True(t, found)
	assert.Equal(t, "-", comment.Tag.Get("json"), "internal comments must never be serialized")

	updatedAt, found := complaintType.FieldByName("UpdatedAt")
	assert.True(t, found)
	assert.Contains(t, updatedAt.Tag.Get("gorm"), "autoUpdateTime:false", "the service clock owns updated_at")

	officeID, found := reflect.TypeOf(models.OfficePerformance{}).FieldByName("OfficeID")
	assert.True(t, found)
	assert.Contains(t, officeID.Tag.Get("gorm"), "uniqueIndex:idx_office_role")
}
