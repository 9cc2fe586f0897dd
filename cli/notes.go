package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"callnotes/service"
)

func newNotesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Add and list call notes",
	}

	var contact string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Save a note and print reminder suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := nb.SaveNote(cmd.Context(), a.now(), service.NoteRequest{
				ChatID:  service.LocalChat,
				Contact: contact,
				Body:    strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatNoteSaved(res, nb.Location(), acceptHint))
			return nil
		},
	}
	add.Flags().StringVar(&contact, "contact", "", "who the call was with")

	var window string
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent notes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			notes, err := nb.RecentNotes(cmd.Context(), a.now(), service.LocalChat, window)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatNotes(notes, nb.Location()))
			return nil
		},
	}
	list.Flags().StringVar(&window, "range", "", `window such as "last 3 days" (default last 24 hours)`)

	cmd.AddCommand(add, list)
	return cmd
}

func acceptHint(noteID uint) string {
	return fmt.Sprintf("Run `callnotes reminders accept %d <number>` to set one.", noteID)
}
