package echoapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/listview"
	"github.com/trezcool/academia/core/page"
)

var (
	searchParam   = "search"
	pageParam     = "page"
	pageSizeParam = "page_size"
	filterPrefix  = "filter."
)

// ListQuery is a list query change read from the query string:
// ?search=kab&page=2&page_size=25&filter.status=ACTIVE
type ListQuery struct {
	page.Update
}

func (lq *ListQuery) Bind(ctx echo.Context) error {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return nil
	}

	var fields []core.FieldError
	if val, ok := data[searchParam]; ok && len(val) > 0 {
		search := val[0]
		lq.Search = &search
	}
	for param, dst := range map[string]**int{pageParam: &lq.Page, pageSizeParam: &lq.PageSize} {
		val, ok := data[param]
		if !ok || len(val) == 0 || val[0] == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val[0]))
		if err != nil {
			fields = append(fields, core.FieldError{Field: param, Error: "enter a whole number"})
			continue
		}
		*dst = &n
	}
	for param, val := range data {
		if !strings.HasPrefix(param, filterPrefix) || len(val) == 0 {
			continue
		}
		if lq.Filters == nil {
			lq.Filters = make(map[string]string)
		}
		lq.Filters[strings.TrimPrefix(param, filterPrefix)] = val[0]
	}

	if len(fields) > 0 {
		return core.NewValidationError(errors.New("invalid list query"), fields...)
	}
	return nil
}

// Query is the query of a stateless list: a fresh query changed by lq, on the requested page.
func (lq ListQuery) Query(pageSize int, hasFilter func(string) bool) (listview.Query, error) {
	q, err := lq.Apply(listview.NewQuery(pageSize), hasFilter)
	if err != nil {
		return q, err
	}
	if lq.Page != nil && *lq.Page > 1 {
		q.Page = *lq.Page
	}
	return q, nil
}

func (lq *ListQuery) Validate(validate *validator.Validate, maxPageSize int) error {
	if lq.PageSize == nil {
		return nil
	}
	return validatePageSize(validate, *lq.PageSize, maxPageSize)
}

func validatePageSize(validate *validator.Validate, size, maxPageSize int) error {
	if err := validate.Var(size, fmt.Sprintf("min=1,max=%d", maxPageSize)); err != nil {
		return core.NewValidationError(err, core.FieldError{
			Field: pageSizeParam,
			Error: fmt.Sprintf("must be between 1 and %d", maxPageSize),
		})
	}
	return nil
}
