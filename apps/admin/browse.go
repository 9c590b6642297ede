package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tidwall/gjson"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/page"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

const browseTimeout = 30 * time.Second

var (
	errInactiveAccount = errors.New("this account is deactivated")
	errForbidden       = errors.New("permission denied")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true)
)

type authenticator interface {
	school.Source
	Login(ctx context.Context, username, password string) (string, user.User, error)
}

type browseOptions struct {
	username string
	password string
	entity   string
	search   string
	filters  filterFlags
	page     int
	pageSize int
}

// browse logs in, mounts the list of opts.entity and prints the requested page.
func (cli *commandLine) browse(opts browseOptions) error {
	m, ok := cli.catalog[opts.entity]
	if !ok {
		return fmt.Errorf("%q: no such entity", opts.entity)
	}

	ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
	defer cancel()

	token, profile, err := cli.backend.Login(ctx, core.CleanString(opts.username, true /* lower */), opts.password)
	if err != nil {
		return err
	}
	if !profile.Active() {
		return errInactiveAccount
	}
	if !m.Allowed(profile) {
		return errForbidden
	}
	sess := &session.Session{AccessToken: token, Profile: profile}

	p := m.Mount(ctx, cli.backend, sess, opts.pageSize)
	defer p.Unmount()
	if err = p.Wait(ctx); err != nil {
		return err
	}

	criteria := page.Update{Filters: map[string]string(opts.filters)}
	if opts.search != "" {
		criteria.Search = &opts.search
	}
	if err = p.Update(criteria); err != nil {
		return err
	}
	if opts.page > 1 {
		if err = p.Update(page.Update{Page: &opts.page}); err != nil {
			return err
		}
	}
	if err = p.Wait(ctx); err != nil {
		return err
	}

	out, err := renderTable(m.Columns(), p.Render())
	if err != nil {
		return err
	}
	cli.printf("%s\n", out)
	return nil
}

// renderTable renders a page view as a table of columns, followed by its paging summary.
func renderTable(columns []string, view interface{}) (string, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	v := gjson.ParseBytes(raw)
	if v.Get("state").String() == page.Failed.String() {
		return "", errors.New(v.Get("error").String())
	}

	headers := make([]string, 0, len(columns))
	for _, col := range columns {
		words := strings.Split(col, "_")
		for i, w := range words {
			words[i] = strmangle.TitleCase(w)
		}
		headers = append(headers, strings.Join(words, " "))
	}

	var rows [][]string
	for _, item := range v.Get("items").Array() {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, cell(item, col))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	footer := footerStyle.Render(fmt.Sprintf(
		"page %d of %d, %d of %d records",
		v.Get("page").Int(), v.Get("total_pages").Int(), v.Get("filtered_count").Int(), v.Get("total").Int(),
	))
	return t.String() + "\n" + footer, nil
}

// cell reads column col of a record. Columns name either a property or its display form:
// "program" reads program_name, "name" joins first_name and last_name, a user's "status" reads is_active.
func cell(item gjson.Result, col string) string {
	if v := item.Get(col); v.Exists() {
		return display(v)
	}
	if v := item.Get(col + "_name"); v.Exists() {
		return display(v)
	}
	switch col {
	case "name":
		return strings.TrimSpace(item.Get("first_name").String() + " " + item.Get("last_name").String())
	case "status":
		if v := item.Get("is_active"); v.Exists() {
			if v.Bool() {
				return "ACTIVE"
			}
			return "INACTIVE"
		}
	}
	return ""
}

func display(v gjson.Result) string {
	if !v.IsArray() {
		return v.String()
	}
	parts := make([]string, 0)
	for _, el := range v.Array() {
		parts = append(parts, el.String())
	}
	return strings.Join(parts, ", ")
}
