package main

import (
	"log"
	"os"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
	appfs "github.com/trezcool/sose/fs"
	"github.com/trezcool/sose/services/email"
	"github.com/trezcool/sose/services/logger"
	"github.com/trezcool/sose/storage/database"
	"github.com/trezcool/sose/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// set up services
	templates, err := core.ParseEmailTemplates(appfs.EmailTemplates(), conf)
	if err != nil {
		logger.Fatal("parsing email templates", err)
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, templates, logger, log.New(os.Stdout, "", 0))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, templates, logger)
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	catalog.InitValidators(validate, translator)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), validate, translator)
	bookSvc := catalog.NewService(sqlxrepos.NewBookRepository(db), validate, translator, logger)
	issueSvc := circulation.NewService(
		db,
		sqlxrepos.NewIssueRepository(db),
		bookSvc,
		usrSvc,
		mailSvc,
		templates,
		logger,
		validate,
		translator,
		circulation.NewPolicy(conf.Library),
	)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   usrSvc,
		bookSvc:  bookSvc,
		issueSvc: issueSvc,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	mailSvc.Wait()
	_ = db.Close()

	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}
