package models

import (
	"time"

	"github.com/google/uuid"
	appErr "github.com/taakra/engine/pkg/errors"
)

// RegistrationStatus is the admin-controlled state of a participant.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusRejected  RegistrationStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

var (
	ErrDeadlinePassed    = appErr.New(appErr.CodeInvalid, "Registration deadline has passed")
	ErrCompetitionFull   = appErr.New(appErr.CodeInvalid, "Competition is full")
	ErrAlreadyRegistered = appErr.New(appErr.CodeInvalid, "User already registered")

	ErrEndBeforeStart     = appErr.New(appErr.CodeInvalid, "End date must be after start date")
	ErrDeadlineAfterStart = appErr.New(appErr.CodeInvalid, "Registration deadline must be before start date")
)

// Competition is an event users register for.
type Competition struct {
	ID                   uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title                string        `gorm:"not null" json:"title"`
	Description          string        `gorm:"type:text;not null" json:"description"`
	CategoryID           uuid.UUID     `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category             *Category     `json:"category,omitempty"`
	Rules                string        `gorm:"type:text;not null" json:"rules"`
	Prizes               string        `gorm:"type:text" json:"prizes,omitempty"`
	StartDate            time.Time     `gorm:"not null;index" json:"startDate"`
	EndDate              time.Time     `gorm:"not null;index" json:"endDate"`
	RegistrationDeadline time.Time     `gorm:"not null" json:"registrationDeadline"`
	MaxParticipants      *int          `json:"maxParticipants,omitempty"`
	Participants         []Participant `gorm:"foreignKey:CompetitionID" json:"participants,omitempty"`
	RegistrationCount    int           `gorm:"not null;default:0;index" json:"registrationCount"`
	Views                int64         `gorm:"not null;default:0;index" json:"views"`
	IsActive             bool          `gorm:"not null;default:true;index" json:"isActive"`
	CreatedByID          *uuid.UUID    `gorm:"type:uuid" json:"-"`
	CreatedBy            *User         `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	CreatedAt            time.Time     `gorm:"index" json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// ValidateSchedule enforces end > start and deadline < start.
func (c *Competition) ValidateSchedule() error {
	if !c.EndDate.After(c.StartDate) {
		return ErrEndBeforeStart
	}
	if !c.RegistrationDeadline.Before(c.StartDate) {
		return ErrDeadlineAfterStart
	}
	return nil
}

// CheckRegistration applies the registration rules in order: deadline, capacity, duplicate.
func (c *Competition) CheckRegistration(now time.Time, participants int64, alreadyRegistered bool) error {
	if now.After(c.RegistrationDeadline) {
		return ErrDeadlinePassed
	}
	if c.MaxParticipants != nil && participants >= int64(*c.MaxParticipants) {
		return ErrCompetitionFull
	}
	if alreadyRegistered {
		return ErrAlreadyRegistered
	}
	return nil
}

// Participant is one user's registration for a competition.
type Participant struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CompetitionID uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_participants_competition_user" json:"competitionId"`
	Competition   *Competition       `json:"competition,omitempty"`
	UserID        uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_participants_competition_user;index" json:"userId"`
	User          *User              `json:"user,omitempty"`
	Status        RegistrationStatus `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	RegisteredAt  time.Time          `gorm:"not null" json:"registeredAt"`
}

func (Participant) TableName() string { return "competition_participants" }
