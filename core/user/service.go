package user

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/sose/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("user not found")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		QueryUsers(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]User, error)
	}

	// Directory gives read access to the school user directory.
	Directory interface {
		GetUser(ctx context.Context, id string) (User, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Directory = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

// Create adds a user to the directory; only used to seed single-school installs.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, core.TranslateValidationErrors(err, svc.translator)
	}

	now := core.Now()
	usr, err := svc.repo.CreateUser(ctx, User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Class:     nu.Class,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetUser(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, &filter)
}
