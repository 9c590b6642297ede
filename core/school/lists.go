package school

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/listview"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/backend"
)

// Entities
const (
	EntityStudents     = "students"
	EntityCourses      = "courses"
	EntityPrograms     = "programs"
	EntityDepartments  = "departments"
	EntityApplications = "applications"
	EntityEvents       = "events"
	EntityUsers        = "users"
	EntityNews         = "news"
)

// Source fetches collection endpoints of the backend.
type Source interface {
	FetchList(ctx context.Context, sess *session.Session, endpoint string, params url.Values) (backend.Collection, error)
}

// Mounter creates list pages of one entity.
type Mounter interface {
	Entity() string
	// Allowed reports whether u may browse the entity.
	Allowed(u user.User) bool
	// Columns are the record properties a table of the entity shows.
	Columns() []string
	// Mount creates the page and starts its fetch. pageSize <= 0 selects the default page size.
	Mount(ctx context.Context, src Source, sess *session.Session, pageSize int) page.Page
}

// List is the list configuration of one entity.
type List[T any] struct {
	Name     string
	Endpoint string
	Engine   listview.Engine[T]
	Cols     []string
	PageSize int
	// ServerPaged lists are searched, filtered and paged by the backend.
	ServerPaged bool
	// Roles may browse the list; none means any authenticated user.
	Roles []string
	// Debounce delays the refetch of server-paged lists while the search term changes.
	Debounce time.Duration
}

var _ Mounter = List[Course]{}

func (l List[T]) Entity() string {
	return l.Name
}

func (l List[T]) Allowed(u user.User) bool {
	return u.HasAnyRole(l.Roles...)
}

func (l List[T]) Columns() []string {
	return l.Cols
}

func (l List[T]) Mount(ctx context.Context, src Source, sess *session.Session, pageSize int) page.Page {
	if pageSize <= 0 {
		pageSize = l.PageSize
	}

	if l.ServerPaged {
		filters := make([]string, 0, len(l.Engine.Filters))
		for name := range l.Engine.Filters {
			filters = append(filters, name)
		}
		sort.Strings(filters)

		p := page.NewRemotePage(l.FetchPage(src, sess), pageSize, l.debounce(), filters...)
		p.Mount(ctx)
		return p
	}

	p := page.NewListPage(l.Engine, pageSize)
	p.Mount(ctx, l.FetchAll(src, sess))
	return p
}

// FetchAll fetches the whole collection of the list.
func (l List[T]) FetchAll(src Source, sess *session.Session) page.FetchFunc[T] {
	return func(ctx context.Context) ([]T, error) {
		col, err := src.FetchList(ctx, sess, l.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		return backend.DecodeItems[T](col)
	}
}

// FetchPage fetches one server-side page of the list.
func (l List[T]) FetchPage(src Source, sess *session.Session) page.RemoteFetchFunc[T] {
	return func(ctx context.Context, params url.Values) ([]T, int, error) {
		col, err := src.FetchList(ctx, sess, l.Endpoint, params)
		if err != nil {
			return nil, 0, err
		}
		items, err := backend.DecodeItems[T](col)
		if err != nil {
			return nil, 0, err
		}
		total := len(items)
		if col.Total.Valid {
			total = col.Total.Int
		}
		return items, total, nil
	}
}

func (l List[T]) debounce() time.Duration {
	if l.Debounce > 0 {
		return l.Debounce
	}
	return 300 * time.Millisecond
}

func str[T any](get func(T) string) listview.Field[T] {
	return listview.String(get)
}

var staff = append(append([]string{}, user.AdminRoles...), user.TeacherRoles...)

var (
	Students = List[Student]{
		Name:     EntityStudents,
		Endpoint: "/students",
		Cols:     []string{"student_number", "name", "program", "year", "status"},
		PageSize: 10,
		Roles:    staff,
		Engine: listview.Engine[Student]{
			Search: []listview.Field[Student]{
				str(Student.FullName),
				str(func(s Student) string { return s.StudentNumber }),
				func(s Student) null.String { return s.Email },
				func(s Student) null.String { return s.ProgramName },
			},
			Filters: map[string]listview.Field[Student]{
				"program":       func(s Student) null.String { return s.ProgramName },
				"program_id":    str(func(s Student) string { return s.ProgramID }),
				"department_id": func(s Student) null.String { return s.DepartmentID },
				"year":          Student.YearString,
				"status":        str(func(s Student) string { return s.Status }),
			},
			Sources: []string{"program", "year", "status"},
		},
	}

	Courses = List[Course]{
		Name:     EntityCourses,
		Endpoint: "/courses",
		Cols:     []string{"code", "title", "program", "semester", "credits", "status"},
		PageSize: 10,
		Engine: listview.Engine[Course]{
			Search: []listview.Field[Course]{
				str(func(c Course) string { return c.Code }),
				str(func(c Course) string { return c.Title }),
				func(c Course) null.String { return c.ProgramName },
			},
			Filters: map[string]listview.Field[Course]{
				"program":  func(c Course) null.String { return c.ProgramName },
				"semester": func(c Course) null.String { return c.Semester },
				"status":   str(func(c Course) string { return c.Status }),
			},
			Sources: []string{"program", "semester", "status"},
		},
	}

	Programs = List[Program]{
		Name:     EntityPrograms,
		Endpoint: "/programs",
		Cols:     []string{"code", "name", "department", "level", "status"},
		PageSize: 10,
		Roles:    staff,
		Engine: listview.Engine[Program]{
			Search: []listview.Field[Program]{
				str(func(p Program) string { return p.Code }),
				str(func(p Program) string { return p.Name }),
				func(p Program) null.String { return p.DepartmentName },
			},
			Filters: map[string]listview.Field[Program]{
				"department":    func(p Program) null.String { return p.DepartmentName },
				"department_id": str(func(p Program) string { return p.DepartmentID }),
				"level":         str(func(p Program) string { return p.Level }),
				"status":        str(func(p Program) string { return p.Status }),
			},
			Sources: []string{"department", "level", "status"},
		},
	}

	Departments = List[Department]{
		Name:     EntityDepartments,
		Endpoint: "/departments",
		Cols:     []string{"code", "name", "head"},
		PageSize: 10,
		Roles:    staff,
		Engine: listview.Engine[Department]{
			Search: []listview.Field[Department]{
				str(func(d Department) string { return d.Code }),
				str(func(d Department) string { return d.Name }),
				func(d Department) null.String { return d.Head },
			},
		},
	}

	Applications = List[Application]{
		Name:     EntityApplications,
		Endpoint: "/applications",
		Cols:     []string{"reference", "name", "email", "program", "status", "submitted_at"},
		PageSize: 10,
		Roles:    user.AdminRoles,
		Engine: listview.Engine[Application]{
			Search: []listview.Field[Application]{
				str(func(a Application) string { return a.Reference }),
				str(Application.FullName),
				str(func(a Application) string { return a.Email }),
			},
			Filters: map[string]listview.Field[Application]{
				"program": func(a Application) null.String { return a.ProgramName },
				"status":  str(func(a Application) string { return a.Status }),
			},
			Sources: []string{"program", "status"},
		},
	}

	Events = List[Event]{
		Name:        EntityEvents,
		Endpoint:    "/events",
		Cols:        []string{"title", "category", "location", "starts_at", "status"},
		PageSize:    12,
		ServerPaged: true,
		Engine: listview.Engine[Event]{
			Search: []listview.Field[Event]{
				str(func(e Event) string { return e.Title }),
				func(e Event) null.String { return e.Location },
			},
			Filters: map[string]listview.Field[Event]{
				"category": func(e Event) null.String { return e.Category },
				"status":   str(func(e Event) string { return e.Status }),
			},
			Sources: []string{"category", "status"},
		},
	}

	Users = List[Account]{
		Name:     EntityUsers,
		Endpoint: "/users",
		Cols:     []string{"name", "username", "email", "roles", "status"},
		PageSize: 10,
		Roles:    user.AdminRoles,
		Engine: listview.Engine[Account]{
			Search: []listview.Field[Account]{
				str(func(a Account) string { return a.Name }),
				str(func(a Account) string { return a.Username }),
				str(func(a Account) string { return a.Email }),
			},
			Filters: map[string]listview.Field[Account]{
				"role":   str(primaryRole),
				"status": str(Account.AccountStatus),
			},
			Sources: []string{"role", "status"},
		},
	}

	News = List[NewsItem]{
		Name:        EntityNews,
		Endpoint:    "/news",
		Cols:        []string{"title", "category", "published_at"},
		PageSize:    9,
		ServerPaged: true,
		Engine: listview.Engine[NewsItem]{
			Search: []listview.Field[NewsItem]{
				str(func(n NewsItem) string { return n.Title }),
				func(n NewsItem) null.String { return n.Summary },
			},
			Filters: map[string]listview.Field[NewsItem]{
				"category": func(n NewsItem) null.String { return n.Category },
			},
			Sources: []string{"category"},
		},
	}
)

// primaryRole is the highest priority role of a, without its sub-role.
func primaryRole(a Account) string {
	best, bestPriority := "", -1
	for _, role := range a.Roles {
		if p := user.RolePriority(role); p > bestPriority {
			best, bestPriority = role, p
		}
	}
	if i := strings.Index(best, ":"); i >= 0 {
		return best[:i]
	}
	return best
}

// Catalog maps entity names to their list.
type Catalog map[string]Mounter

// NewCatalog returns every list. delay is the search debounce of the server-paged lists.
func NewCatalog(delay time.Duration) Catalog {
	events, news := Events, News
	events.Debounce, news.Debounce = delay, delay

	catalog := Catalog{}
	for _, m := range []Mounter{Students, Courses, Programs, Departments, Applications, events, Users, news} {
		catalog[m.Entity()] = m
	}
	return catalog
}

// Names lists the entities of c, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
