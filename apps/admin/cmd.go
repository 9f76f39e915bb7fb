package main

import (
	"errors"
	"io"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/catalog"
	"github.com/trezcool/sose/core/circulation"
	"github.com/trezcool/sose/core/user"
	"github.com/trezcool/sose/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errHelp = errors.New("help provided")

	// cliActor is the identity of the admin CLI on the library.
	cliActor = user.Actor{ID: "admin-cli", Role: user.RoleAdmin}
)

type commandLine struct {
	db       *sqlx.DB
	usrSvc   *user.Service
	bookSvc  *catalog.Service
	issueSvc *circulation.Service
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Library administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addBookCmd(),
		cli.addUserCmd(),
		cli.overdueCmd(),
		cli.remindOverdueCmd(),
	)
	return root
}

// run executes the command named in args; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

// requireFlags fails with errHelp when one of the named flags is empty.
func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if val, _ := cmd.Flags().GetString(name); core.CleanString(val) == "" {
			_ = cmd.Usage()
			return errHelp
		}
	}
	return nil
}
