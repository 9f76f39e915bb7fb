// Package sqlxrepos implements the repositories over sqlx, with queries built by goqu
// for the dialect of the executor (postgres or sqlite3).
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core"
)

const pqUniqueViolation = "23505"

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func dialect(exec core.DBExecutor) goqu.DialectWrapper {
	return goqu.Dialect(exec.DriverName())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsExpression matches rows where one of cols contains term, ignoring case.
// % and _ in term match literally.
func containsExpression(exec core.DBExecutor, term string, cols ...string) exp.ExpressionList {
	op := "ILIKE"
	if exec.DriverName() == "sqlite3" {
		op = "LIKE" // case-insensitive for ASCII
	}
	val := "%" + likeEscaper.Replace(term) + "%"

	ors := make([]exp.Expression, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, goqu.L("? "+op+" ? ESCAPE '\\'", goqu.C(col), val))
	}
	return goqu.Or(ors...)
}

// get runs the built query and scans its single row into dest.
func get(ctx context.Context, exec core.DBExecutor, dest interface{}, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.GetContext(ctx, dest, query, args...)
}

// selectAll runs the built query and scans its rows into dest.
func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, ds sqlBuilder) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return exec.SelectContext(ctx, dest, query, args...)
}

// execute runs the built statement and returns the number of affected rows.
func execute(ctx context.Context, exec core.DBExecutor, ds sqlBuilder) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, errors.Wrap(err, "building statement")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// orderedExpressions maps the orderings on allowed columns, then orders by id for a stable result.
func orderedExpressions(ordering []core.DBOrdering, allowed []string) []exp.OrderedExpression {
	exprs := make([]exp.OrderedExpression, 0, len(ordering)+1)
	for _, ord := range ordering {
		for _, a := range allowed {
			if ord.Field != a {
				continue
			}
			if ord.Ascending {
				exprs = append(exprs, goqu.I(a).Asc())
			} else {
				exprs = append(exprs, goqu.I(a).Desc())
			}
			break
		}
	}
	return append(exprs, goqu.I("id").Asc())
}

func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == pqUniqueViolation
	case sqlite3.Error:
		return e.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
