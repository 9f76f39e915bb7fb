package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/sose/apps/api/echo"
	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
	appfs "github.com/trezcool/sose/fs"
	emailsvc "github.com/trezcool/sose/services/email"
	logsvc "github.com/trezcool/sose/services/logger"
	"github.com/trezcool/sose/storage/database"
	"github.com/trezcool/sose/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type validators struct {
	dig.Out
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newValidators() validators {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)
	return validators{Validate: validate, Translator: translator}
}

func newEmailTemplates(conf *core.Config) (*core.EmailTemplates, error) {
	templates, err := core.ParseEmailTemplates(appfs.EmailTemplates(), conf)
	return templates, errors.Wrap(err, "parsing email templates")
}

func newEmailService(conf *core.Config, templates *core.EmailTemplates, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, templates, logger, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, templates, logger)
}

func newPolicy(conf *core.Config) circulation.Policy {
	return circulation.NewPolicy(conf.Library)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	catalogSvc *catalog.Service,
	circulationSvc *circulation.Service,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		CatalogSvc:     catalogSvc,
		CirculationSvc: circulationSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newValidators))
	must(c.Provide(newEmailTemplates))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewBookRepository, dig.As(new(catalog.Repository))))
	must(c.Provide(sqlxrepos.NewIssueRepository, dig.As(new(circulation.Repository))))
	must(c.Provide(user.NewService, dig.As(new(user.Directory))))
	must(c.Provide(catalog.NewService))
	must(c.Provide(func(svc *catalog.Service) circulation.BookStore { return svc }))
	must(c.Provide(newPolicy))
	must(c.Provide(circulation.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
