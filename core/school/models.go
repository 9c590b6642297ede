// Package school holds the records the portal lists and their list configurations.
package school

import (
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Statuses
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
	StatusGraduated = "GRADUATED"
	StatusWithdrawn = "WITHDRAWN"

	StatusPending     = "PENDING"
	StatusUnderReview = "UNDER_REVIEW"
	StatusApproved    = "APPROVED"
	StatusRejected    = "REJECTED"

	StatusScheduled = "SCHEDULED"
	StatusCancelled = "CANCELLED"
)

var StudentStatuses = []string{StatusActive, StatusSuspended, StatusGraduated, StatusWithdrawn}

type (
	Department struct {
		ID   string      `json:"id"`
		Name string      `json:"name"`
		Code string      `json:"code"`
		Head null.String `json:"head"`
	}

	Program struct {
		ID             string      `json:"id"`
		Name           string      `json:"name"`
		Code           string      `json:"code"`
		DepartmentID   string      `json:"department_id"`
		DepartmentName null.String `json:"department_name"`
		Level          string      `json:"level"`
		Status         string      `json:"status"`
	}

	Course struct {
		ID          string      `json:"id"`
		Code        string      `json:"code"`
		Title       string      `json:"title"`
		ProgramID   string      `json:"program_id"`
		ProgramName null.String `json:"program_name"`
		Semester    null.String `json:"semester"`
		Credits     int         `json:"credits"`
		Status      string      `json:"status"`
	}

	Student struct {
		ID            string      `json:"id"`
		StudentNumber string      `json:"student_number"`
		FirstName     string      `json:"first_name"`
		LastName      string      `json:"last_name"`
		Email         null.String `json:"email"`
		ProgramID     string      `json:"program_id"`
		ProgramName   null.String `json:"program_name"`
		DepartmentID  null.String `json:"department_id"`
		Year          null.Int    `json:"year"`
		Status        string      `json:"status"`
	}

	Application struct {
		ID          string      `json:"id"`
		Reference   string      `json:"reference"`
		FirstName   string      `json:"first_name"`
		LastName    string      `json:"last_name"`
		Email       string      `json:"email"`
		ProgramID   string      `json:"program_id"`
		ProgramName null.String `json:"program_name"`
		Status      string      `json:"status"`
		SubmittedAt null.Time   `json:"submitted_at"`
	}

	Event struct {
		ID       string      `json:"id"`
		Title    string      `json:"title"`
		Category null.String `json:"category"`
		Location null.String `json:"location"`
		StartsAt time.Time   `json:"starts_at"`
		Status   string      `json:"status"`
	}

	Account struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Username string   `json:"username"`
		Email    string   `json:"email"`
		Roles    []string `json:"roles"`
		IsActive bool     `json:"is_active"`
	}

	NewsItem struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Summary     null.String `json:"summary"`
		Category    null.String `json:"category"`
		PublishedAt null.Time   `json:"published_at"`
	}
)

func (d Department) RecordID() string  { return d.ID }
func (p Program) RecordID() string     { return p.ID }
func (c Course) RecordID() string      { return c.ID }
func (s Student) RecordID() string     { return s.ID }
func (a Application) RecordID() string { return a.ID }
func (e Event) RecordID() string       { return e.ID }
func (a Account) RecordID() string     { return a.ID }
func (n NewsItem) RecordID() string    { return n.ID }

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (a Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// YearString is the study year as text, or null when unknown.
func (s Student) YearString() null.String {
	if !s.Year.Valid {
		return null.String{}
	}
	return null.StringFrom(strconv.Itoa(s.Year.Int))
}

// AccountStatus is ACTIVE or INACTIVE.
func (a Account) AccountStatus() string {
	if a.IsActive {
		return StatusActive
	}
	return StatusInactive
}
