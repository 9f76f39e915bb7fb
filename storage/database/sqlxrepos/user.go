package sqlxrepos

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/user"
)

const usersTable = "users"

var userColumns = []interface{}{"id", "name", "email", "role", "class", "is_active", "created_at", "updated_at"}

type userRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Email     null.String `db:"email"`
	Role      string      `db:"role"`
	Class     null.String `db:"class"`
	IsActive  bool        `db:"is_active"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) unmarshal(row userRow) user.User {
	return user.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email.String,
		Role:      row.Role,
		Class:     row.Class.String,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

// CreateUser inserts usr, with a generated ID unless the directory provided one.
func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	rec := goqu.Record{
		"id":         usr.ID,
		"name":       usr.Name,
		"email":      null.NewString(usr.Email, usr.Email != ""),
		"role":       usr.Role,
		"class":      null.NewString(usr.Class, usr.Class != ""),
		"is_active":  usr.IsActive,
		"created_at": usr.CreatedAt.UTC(),
		"updated_at": usr.UpdatedAt.UTC(),
	}
	if _, err := execute(ctx, exe, dialect(exe).Insert(usersTable).Rows(rec).Prepared(true)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUser(ctx, usr.ID, exe)
}

func (repo userRepository) GetUser(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)

	var row userRow
	ds := dialect(exe).From(usersTable).Select(userColumns...).Where(goqu.C("id").Eq(id)).Prepared(true)
	if err := get(ctx, exe, &row, ds); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return repo.unmarshal(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	ds := dialect(exe).From(usersTable).Select(userColumns...)

	if filter != nil {
		// users with Name or Email matching the search keyword
		if filter.Search != "" {
			ds = ds.Where(containsExpression(exe, filter.Search, "name", "email"))
		}
		if filter.Role != "" {
			ds = ds.Where(goqu.C("role").Eq(filter.Role))
		}
		if filter.IsActive != nil {
			ds = ds.Where(goqu.C("is_active").Eq(*filter.IsActive))
		}
	}
	ds = ds.Order(goqu.C("name").Asc(), goqu.C("id").Asc())

	var rows []userRow
	if err := selectAll(ctx, exe, &rows, ds.Prepared(true)); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unmarshal(row))
	}
	return users, nil
}
