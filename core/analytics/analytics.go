// Package analytics derives chart series from list collections.
package analytics

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/listview"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

// Unknown labels records whose field is null or empty.
const Unknown = "Unknown"

type Point struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type Series struct {
	Chart  string  `json:"chart"`
	Title  string  `json:"title"`
	Total  int     `json:"total"`
	Points []Point `json:"points"`
}

// CountBy counts the records of collection per value of field, in first-seen order.
func CountBy[T any](collection []T, field listview.Field[T]) []Point {
	points := make([]Point, 0)
	index := make(map[string]int)
	for _, rec := range collection {
		label := Unknown
		if v := field(rec); v.Valid && v.String != "" {
			label = v.String
		}
		if i, ok := index[label]; ok {
			points[i].Value++
			continue
		}
		index[label] = len(points)
		points = append(points, Point{Label: label, Value: 1})
	}
	return points
}

// Chart is a series counted over the collection of one list.
type Chart struct {
	Name   string
	Title  string
	Entity string
	Roles  []string

	compute func(ctx context.Context, src school.Source, sess *session.Session) ([]Point, int, error)
}

// Compute fetches the collection of the chart's list and counts it.
func (c Chart) Compute(ctx context.Context, src school.Source, sess *session.Session) (Series, error) {
	points, total, err := c.compute(ctx, src, sess)
	if err != nil {
		return Series{}, errors.Wrapf(err, "computing chart %s", c.Name)
	}
	return Series{Chart: c.Name, Title: c.Title, Total: total, Points: points}, nil
}

func (c Chart) Allowed(u user.User) bool {
	return u.HasAnyRole(c.Roles...)
}

func chart[T any](name, title, filter string, list school.List[T]) Chart {
	field := list.Engine.Filters[filter]
	return Chart{
		Name:   name,
		Title:  title,
		Entity: list.Name,
		Roles:  user.AdminRoles,
		compute: func(ctx context.Context, src school.Source, sess *session.Session) ([]Point, int, error) {
			collection, err := list.FetchAll(src, sess)(ctx)
			if err != nil {
				return nil, 0, err
			}
			return CountBy(collection, field), len(collection), nil
		},
	}
}

// Charts are the dashboard charts, by name.
var Charts = map[string]Chart{
	"students-per-program":    chart("students-per-program", "Students per program", "program", school.Students),
	"students-by-status":      chart("students-by-status", "Students by status", "status", school.Students),
	"applications-by-status":  chart("applications-by-status", "Applications by status", "status", school.Applications),
	"applications-by-program": chart("applications-by-program", "Applications by program", "program", school.Applications),
	"events-by-category":      chart("events-by-category", "Events by category", "category", school.Events),
	"courses-per-program":     chart("courses-per-program", "Courses per program", "program", school.Courses),
}
