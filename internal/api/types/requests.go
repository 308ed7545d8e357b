package types

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type CompetitionCreateRequest struct {
	Title                string `json:"title" validate:"required"`
	Description          string `json:"description" validate:"required"`
	Category             string `json:"category" validate:"required,uuid"`
	Rules                string `json:"rules" validate:"required"`
	Prizes               string `json:"prizes"`
	StartDate            string `json:"startDate" validate:"required"`
	EndDate              string `json:"endDate" validate:"required"`
	RegistrationDeadline string `json:"registrationDeadline" validate:"required"`
	MaxParticipants      *int   `json:"maxParticipants" validate:"omitempty,gt=0"`
}

type CompetitionUpdateRequest struct {
	Title                *string `json:"title" validate:"omitempty,min=1"`
	Description          *string `json:"description" validate:"omitempty,min=1"`
	Category             *string `json:"category" validate:"omitempty,uuid"`
	Rules                *string `json:"rules" validate:"omitempty,min=1"`
	Prizes               *string `json:"prizes"`
	StartDate            *string `json:"startDate"`
	EndDate              *string `json:"endDate"`
	RegistrationDeadline *string `json:"registrationDeadline"`
	MaxParticipants      *int    `json:"maxParticipants" validate:"omitempty,gt=0"`
	IsActive             *bool   `json:"isActive"`
}

type RegistrationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type ProfileUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,password"`
}

type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required"`
}

type ChatbotMessageRequest struct {
	Message string `json:"message"`
}
