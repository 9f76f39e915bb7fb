package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/sose/core/user"
)

// addUserCmd adds a user to the directory, for installs without an external one.
func (cli *commandLine) addUserCmd() *cobra.Command {
	var nu user.NewUser
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Add a user to the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "name", "role"); err != nil {
				return err
			}
			usr, err := cli.usrSvc.Create(context.Background(), nu)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s %q added: %s\n", usr.Role, usr.Name, usr.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&nu.Name, "name", "", "full name")
	flags.StringVar(&nu.Email, "email", "", "email address, used for overdue reminders")
	flags.StringVar(&nu.Role, "role", "", "one of: "+strings.Join(user.AllRoles, ", "))
	flags.StringVar(&nu.Class, "class", "", "class of a student, eg: 5B")
	return cmd
}
