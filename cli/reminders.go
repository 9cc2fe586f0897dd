package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"callnotes/service"
	"callnotes/storage"
)

func newRemindersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Schedule, list and deliver reminders",
	}

	var window string
	list := &cobra.Command{
		Use:   "list",
		Short: "List upcoming reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			rems, err := nb.UpcomingReminders(cmd.Context(), a.now(), service.LocalChat, window)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), service.FormatReminders(rems, nb.Location()))
			return nil
		},
	}
	list.Flags().StringVar(&window, "range", "", `window such as "next 3 days" (default next 24 hours)`)

	accept := &cobra.Command{
		Use:   "accept <note> <number|time>",
		Short: "Create a reminder from a suggestion number or an explicit time",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			noteID, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id %q", args[0])
			}

			nb, _, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			rest := strings.Join(args[1:], " ")
			var r storage.Reminder
			if idx, convErr := strconv.Atoi(rest); convErr == nil {
				r, err = nb.AcceptSuggestion(cmd.Context(), a.now(), service.LocalChat, uint(noteID), idx)
			} else {
				r, err = nb.ScheduleReminder(cmd.Context(), a.now(), service.LocalChat, uint(noteID), rest)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder #%d set for %s: %s\n", r.ID, service.FormatWhen(r.DueAt, nb.Location()), r.Title)
			return nil
		},
	}

	deliver := &cobra.Command{
		Use:   "deliver",
		Short: "Deliver every reminder that is due now to the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, closeDB, err := a.openNotebook()
			if err != nil {
				return err
			}
			defer closeDB()

			d := service.NewDispatcher(store, nil, a.cfg.ReminderPollInterval, a.cfg.Location, a.log)
			sent, err := d.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d reminder(s) delivered\n", sent)
			return nil
		},
	}

	cmd.AddCommand(list, accept, deliver)
	return cmd
}
