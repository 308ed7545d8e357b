package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSupport:
		return true
	}
	return false
}

// In reports whether r is a member of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// User represents a platform account, local or linked to an OAuth provider.
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  *string    `gorm:"column:password_hash" json:"-"`
	OAuthProvider string     `gorm:"column:oauth_provider;type:varchar(32);index:idx_users_oauth" json:"oauthProvider,omitempty"`
	OAuthID       string     `gorm:"column:oauth_id;index:idx_users_oauth" json:"-"`
	Role          Role       `gorm:"type:varchar(16);not null;default:user;index" json:"role"`
	Avatar        string     `json:"avatar,omitempty"`
	IsOnline      bool       `gorm:"not null;default:false" json:"isOnline"`
	CreatedByID   *uuid.UUID `gorm:"type:uuid" json:"createdBy,omitempty"`

	RegisteredCompetitions []Competition `gorm:"many2many:user_competitions" json:"registeredCompetitions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Profile is the public subset of a user embedded in chat payloads.
type Profile struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
	Role   Role      `json:"role"`
}

// Profile returns the public fields of u.
func (u *User) Profile() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{ID: u.ID, Name: u.Name, Avatar: u.Avatar, Role: u.Role}
}

// UserCompetition is the join row behind User.RegisteredCompetitions.
type UserCompetition struct {
	UserID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompetitionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt     time.Time
}

func (UserCompetition) TableName() string { return "user_competitions" }
