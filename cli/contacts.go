package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callnotes/service"
)

func newContactsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage the contact list",
	}

	var in service.ContactInput
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a contact",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			in.Name = strings.Join(args, " ")
			c, err := nb.Contacts().Add(cmd.Context(), a.now(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added contact #%d %s\n", c.ID, c.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().BoolVar(&in.Favorite, "favorite", false, "pin to the top of listings")

	var limit int
	find := &cobra.Command{
		Use:   "find [query]",
		Short: "Fuzzy-find contacts by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			contacts, err := nb.Contacts().Find(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatContacts(contacts))
			return nil
		},
	}
	find.Flags().IntVar(&limit, "limit", 20, "maximum number of results")

	cmd.AddCommand(add, find)
	return cmd
}
