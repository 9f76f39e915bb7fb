package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/trezcool/sose/core"
	"github.com/trezcool/sose/core/circulation"
)

func (cli *commandLine) overdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List the books not returned by their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := cli.issueSvc.Query(context.Background(), cliActor, circulation.QueryFilter{OverdueOnly: true},
				core.DBOrdering{Field: "due_date", Ascending: true})
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				fmt.Fprintln(cli.out, "no overdue books")
				return nil
			}

			policy := cli.issueSvc.Policy()
			now := cli.issueSvc.Now()
			w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ISSUE\tSTUDENT\tTITLE\tDUE DATE\tDAYS\tFINE")
			for _, iss := range issues {
				days := circulation.DaysOverdue(iss.DueDate, now)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
					iss.ID, iss.StudentID, iss.BookTitle, iss.DueDate.Format("2006-01-02"), days, policy.Fine(iss.DueDate, now))
			}
			return w.Flush()
		},
	}
}

func (cli *commandLine) remindOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remindoverdue",
		Short: "Email the borrowers of overdue books",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.issueSvc.RemindOverdue(context.Background(), cliActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d reminder(s) sent\n", n)
			return nil
		},
	}
}
