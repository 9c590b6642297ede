package school

import (
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/listview"
)

// ProgramsOf returns the programs of the department departmentID.
func ProgramsOf(programs []Program, departmentID string) []Program {
	return listview.ApplyFilters(programs, map[string]string{"department_id": departmentID}, Programs.Engine.Filters)
}

// StudentsOf returns the students enrolled in the program programID.
func StudentsOf(students []Student, programID string) []Student {
	return listview.ApplyFilters(students, map[string]string{"program_id": programID}, Students.Engine.Filters)
}

// Decision on an application.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

var decisionStatuses = map[Decision]string{
	Approve: StatusApproved,
	Reject:  StatusRejected,
}

// ParseDecision validates an approve/reject action name.
func ParseDecision(action string) (Decision, error) {
	d := Decision(core.CleanString(action, true))
	if _, ok := decisionStatuses[d]; !ok {
		return "", core.NewValidationError(errors.Errorf("unknown decision %q", action),
			core.FieldError{Field: "action", Error: "must be approve or reject"})
	}
	return d, nil
}

// Review returns app with the status resulting from d.
// Only PENDING and UNDER_REVIEW applications can be decided on.
func Review(app Application, d Decision) (Application, error) {
	status, ok := decisionStatuses[d]
	if !ok {
		return app, core.NewValidationError(errors.Errorf("unknown decision %q", d))
	}
	if app.Status != StatusPending && app.Status != StatusUnderReview {
		return app, core.NewValidationError(
			errors.Errorf("application %s is %s", app.Reference, app.Status),
			core.FieldError{Field: "status", Error: "only pending applications can be reviewed"},
		)
	}
	app.Status = status
	return app, nil
}

// ValidateStudentStatus checks status is one a student can be moved to.
func ValidateStudentStatus(status string) error {
	for _, s := range StudentStatuses {
		if s == status {
			return nil
		}
	}
	return core.NewValidationError(errors.Errorf("invalid student status %q", status),
		core.FieldError{Field: "status", Error: "must be one of ACTIVE, SUSPENDED, GRADUATED, WITHDRAWN"})
}

// Deletable reports whether records of entity can be deleted from the dashboard.
func Deletable(entity string) bool {
	switch entity {
	case EntityStudents, EntityCourses, EntityPrograms, EntityDepartments, EntityEvents, EntityUsers, EntityNews:
		return true
	}
	return false
}
