package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/sose/core/catalog"
)

func (cli *commandLine) addBookCmd() *cobra.Command {
	var nb catalog.NewBook
	cmd := &cobra.Command{
		Use:   "addbook",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "title", "author"); err != nil {
				return err
			}
			book, err := cli.bookSvc.Create(context.Background(), cliActor, nb)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "book %q added: %s (%d copies)\n", book.Title, book.ID, book.TotalCopies)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&nb.Title, "title", "", "title of the book")
	flags.StringVar(&nb.Author, "author", "", "author of the book")
	flags.StringVar(&nb.Subject, "subject", "", "subject of the book, eg: Mathematics")
	flags.StringVar(&nb.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	flags.IntVar(&nb.TotalCopies, "copies", 1, "number of copies")
	flags.BoolVar(&nb.IsDigital, "digital", false, "the book is digital (not circulated)")
	flags.StringVar(&nb.DigitalURL, "url", "", "URL of a digital book")
	flags.StringVar(&nb.Description, "description", "", "description of the book")
	return cmd
}
