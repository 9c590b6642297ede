// Package menu builds the dashboard sidebar of a user.
package menu

import "github.com/trezcool/academia/core/user"

type (
	Item struct {
		Label string `json:"label"`
		Path  string `json:"path"`
		// Entity is the list page the item opens, if any.
		Entity string `json:"entity,omitempty"`
	}

	Section struct {
		Title string `json:"title"`
		Items []Item `json:"items"`
	}
)

type rule struct {
	section Section
	// roles that see the section; admins see everything
	roles []string
}

var rules = []rule{
	{
		section: Section{Title: "Overview", Items: []Item{
			{Label: "Dashboard", Path: "/dashboard"},
			{Label: "Events", Path: "/dashboard/events", Entity: "events"},
			{Label: "News", Path: "/dashboard/news", Entity: "news"},
		}},
		roles: user.AllRoles,
	},
	{
		section: Section{Title: "Academics", Items: []Item{
			{Label: "Departments", Path: "/dashboard/departments", Entity: "departments"},
			{Label: "Programs", Path: "/dashboard/programs", Entity: "programs"},
			{Label: "Courses", Path: "/dashboard/courses", Entity: "courses"},
			{Label: "Students", Path: "/dashboard/students", Entity: "students"},
		}},
		roles: user.TeacherRoles,
	},
	{
		section: Section{Title: "My studies", Items: []Item{
			{Label: "My courses", Path: "/dashboard/courses", Entity: "courses"},
			{Label: "My profile", Path: "/dashboard/profile"},
		}},
		roles: user.StudentRoles,
	},
	{
		section: Section{Title: "Administration", Items: []Item{
			{Label: "Applications", Path: "/dashboard/applications", Entity: "applications"},
			{Label: "Users", Path: "/dashboard/users", Entity: "users"},
			{Label: "Analytics", Path: "/dashboard/analytics"},
		}},
	},
}

// For returns the sidebar sections u may see, in display order.
func For(u user.User) []Section {
	sections := make([]Section, 0, len(rules))
	for _, r := range rules {
		if u.IsAdmin() {
			if r.roles == nil || !isStudentOnly(r.roles) {
				sections = append(sections, r.section)
			}
			continue
		}
		if r.roles != nil && u.HasAnyRole(r.roles...) {
			sections = append(sections, r.section)
		}
	}
	return sections
}

func isStudentOnly(roles []string) bool {
	return len(roles) == len(user.StudentRoles) && roles[0] == user.RoleStudent
}
