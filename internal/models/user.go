package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is any actor known to the system: a citizen, a stakeholder office,
// an anti-corruption officer, a Kentiba Biro official or an administrator.
type User struct {
	ID   string `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:text;not null" json:"name"`
	Role Role   `gorm:"type:text;not null;index" json:"role"`
}

// BeforeCreate is a GORM hook that generates a UUID for the user
// if the ID has not been set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
