// Package admission is the multi-step admission application form of the public site.
package admission

import (
	"time"
)

// Steps
const (
	StepPersonal = "personal"
	StepAcademic = "academic"
	StepProgram  = "program"
	StepReview   = "review"
)

var Steps = []string{StepPersonal, StepAcademic, StepProgram, StepReview}

func stepIndex(step string) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}

type (
	Personal struct {
		FirstName string `json:"first_name" validate:"required,max=100"`
		LastName  string `json:"last_name" validate:"required,max=100"`
		Email     string `json:"email" validate:"required,email"`
		Phone     string `json:"phone" validate:"required,phone"`
		BirthDate string `json:"birth_date" validate:"required,isodate"`
		Gender    string `json:"gender" validate:"omitempty,oneof=F M"`
	}

	Academic struct {
		PreviousSchool string `json:"previous_school" validate:"required,max=200"`
		Diploma        string `json:"diploma" validate:"required,max=100"`
		GraduationYear int    `json:"graduation_year" validate:"required,gte=1950,lte=2100"`
		Grade          string `json:"grade" validate:"omitempty,max=20"`
	}

	ProgramChoice struct {
		ProgramID  string `json:"program_id" validate:"required"`
		StartTerm  string `json:"start_term" validate:"required,oneof=FALL SPRING"`
		Motivation string `json:"motivation" validate:"max=2000"`
	}

	Review struct {
		AcceptTerms bool `json:"accept_terms" validate:"required"`
	}

	// Draft is an admission application being filled in.
	Draft struct {
		ID        string         `json:"id"`
		Step      string         `json:"step"`
		Personal  *Personal      `json:"personal,omitempty"`
		Academic  *Academic      `json:"academic,omitempty"`
		Program   *ProgramChoice `json:"program,omitempty"`
		Review    *Review        `json:"review,omitempty"`
		Submitted bool           `json:"submitted"`
		Reference string         `json:"reference,omitempty"`
		CreatedAt time.Time      `json:"created_at"`
		UpdatedAt time.Time      `json:"updated_at"`
	}

	// Application is what the backend receives on submission.
	Application struct {
		Personal
		Academic
		ProgramChoice
	}
)

// stepData returns a pointer to a fresh value of the data of step.
func stepData(step string) interface{} {
	switch step {
	case StepPersonal:
		return &Personal{}
	case StepAcademic:
		return &Academic{}
	case StepProgram:
		return &ProgramChoice{}
	case StepReview:
		return &Review{}
	}
	return nil
}

func (d *Draft) set(data interface{}) {
	switch v := data.(type) {
	case *Personal:
		d.Personal = v
	case *Academic:
		d.Academic = v
	case *ProgramChoice:
		d.Program = v
	case *Review:
		d.Review = v
	}
}

// data returns the saved data of step, nil when missing.
func (d Draft) data(step string) interface{} {
	switch step {
	case StepPersonal:
		if d.Personal != nil {
			return d.Personal
		}
	case StepAcademic:
		if d.Academic != nil {
			return d.Academic
		}
	case StepProgram:
		if d.Program != nil {
			return d.Program
		}
	case StepReview:
		if d.Review != nil {
			return d.Review
		}
	}
	return nil
}
