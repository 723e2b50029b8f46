package echoapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classbook/classbook/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// queryParams reads typed query parameters, collecting a field error for each malformed value.
type queryParams struct {
	values url.Values
	errs   []core.FieldError
}

func newQueryParams(ctx echo.Context) *queryParams {
	return &queryParams{values: ctx.QueryParams()}
}

func (q *queryParams) invalid(name, msg string) {
	q.errs = append(q.errs, core.FieldError{Field: name, Error: msg})
}

func (q *queryParams) String(name string) string {
	return core.CleanString(q.values.Get(name))
}

// Strings accepts both repeated (?id=1&id=2) and comma-separated (?id=1,2) values.
func (q *queryParams) Strings(name string) []string {
	vals, ok := q.values[name]
	if !ok {
		return nil
	}
	res := make([]string, 0, len(vals))
	for _, val := range vals {
		for _, v := range strings.Split(val, ",") {
			if v = strings.TrimSpace(v); v != "" {
				res = append(res, v)
			}
		}
	}
	return res
}

func (q *queryParams) Bool(name string) *bool {
	val := q.String(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		q.invalid(name, "invalid boolean")
		return nil
	}
	return &b
}

func (q *queryParams) Int(name string) int {
	val := q.String(name)
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		q.invalid(name, "invalid number")
		return 0
	}
	return i
}

// Date parses a "YYYY-MM-DD" date.
func (q *queryParams) Date(name string) core.Date {
	val := q.String(name)
	if val == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(val)
	if err != nil {
		q.invalid(name, "invalid date, use YYYY-MM-DD")
		return core.Date{}
	}
	return d
}

// Time parses an RFC 3339 timestamp.
func (q *queryParams) Time(name string) time.Time {
	val := q.String(name)
	if val == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		q.invalid(name, "invalid time, use RFC 3339")
		return time.Time{}
	}
	return t
}

// Err returns the errors collected so far as a core.ValidationError.
func (q *queryParams) Err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return core.NewValidationError(nil, q.errs...)
}
