package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
)

// baseRepo holds what every repository needs: the default executor and a query builder
// using the placeholders of its driver.
type baseRepo struct {
	exec core.DBExecutor
	sb   sq.StatementBuilderType
}

func newBaseRepo(db core.DB) baseRepo {
	var format sq.PlaceholderFormat = sq.Question
	if db.DriverName() == "postgres" {
		format = sq.Dollar
	}
	return baseRepo{
		exec: db,
		sb:   sq.StatementBuilder.PlaceholderFormat(format),
	}
}

func (repo baseRepo) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo baseRepo) selectAll(ctx context.Context, exe core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exe, dest, q, args...)
}

func (repo baseRepo) selectOne(ctx context.Context, exe core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exe, dest, q, args...)
}

// execute runs a write query and returns the number of affected rows.
func (repo baseRepo) execute(ctx context.Context, exe core.DBExecutor, query sq.Sqlizer) (int64, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exe.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (repo baseRepo) exists(ctx context.Context, exe core.DBExecutor, query sq.SelectBuilder) (bool, error) {
	var cnt int
	if err := repo.selectOne(ctx, exe, &cnt, query.Column("COUNT(*)")); err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// trapNoRowsErr maps the "no rows" error to the domain's not found error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func newID() string {
	return uuid.New().String()
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// orderBy translates the requested ordering into SQL, ignoring unknown fields.
// `columns` maps API field names to columns.
func orderBy(ordering []core.DBOrdering, columns map[string]string, defaults ...string) []string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(clauses) == 0 {
		return defaults
	}
	return clauses
}

// searchPattern is a case-insensitive LIKE pattern, matched against LOWER(column).
func searchPattern(search string) string {
	return "%" + strings.ToLower(search) + "%"
}

// ilike matches `pattern` against any of the columns, ignoring case.
func ilike(pattern string, columns ...string) sq.Or {
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.Expr("LOWER("+col+") LIKE ?", pattern))
	}
	return or
}
