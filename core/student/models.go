package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ricardious/semestrix/core"
)

// Onboarding steps
const (
	StepIdentity = 1 // student id + program chosen
	StepHistory  = 2 // history declared
	StepDone     = 3 // onboarding complete
)

// Profile is a user's academic profile: which program version they follow and
// how far along onboarding they are.
type Profile struct {
	ID              string    `json:"profile_id"`
	UserID          string    `json:"user_id"`
	StudentID       *string   `json:"student_id"`
	ProgramID       *int      `json:"current_program_id"`
	VersionID       *int      `json:"current_version_id"`
	CurrentSemester *int      `json:"current_semester"`
	OnboardingStep  int       `json:"onboarding_step"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Status is the lightweight onboarding summary the client gates routes on.
type Status struct {
	HasProfile     bool    `json:"has_profile"`
	OnboardingStep int     `json:"onboarding_step"`
	ProfileID      *string `json:"profile_id,omitempty"`
	StudentID      *string `json:"student_id,omitempty"`
	CareerCode     *string `json:"career_code,omitempty"`
}

// Identity carries the first onboarding step: the student's institutional id
// and the program they follow, by code or id.
type Identity struct {
	StudentID       string `json:"student_id" validate:"required,alphanum_"`
	CareerCode      string `json:"career_code" validate:"required_without=ProgramID,omitempty,coursecode"`
	ProgramID       *int   `json:"program_id"`
	CurrentSemester *int   `json:"current_semester" validate:"omitempty,min=1,max=20"`
}

func (id *Identity) Validate(validate *validator.Validate) error {
	id.StudentID = core.CleanString(id.StudentID)
	id.CareerCode = core.CleanString(id.CareerCode, true /* lower */)
	return validate.Struct(id)
}
