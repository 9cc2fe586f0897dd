package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"callnotes/timeutil"
)

var errNoTime = errors.New("no time found")

func newParseCommand(a *app) *cobra.Command {
	var (
		base   string
		future bool
		strict bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Resolve the first clock time mentioned in text",
		Example: `  callnotes parse "let's talk at 3:30pm tomorrow" --base 2024-06-01
  callnotes parse --future "call back at 9"
  callnotes parse --all "9am standup, 14:30 review"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			baseDate := a.now()
			if base != "" {
				t, err := dateparse.ParseIn(base, a.cfg.Location)
				if err != nil {
					return fmt.Errorf("invalid --base %q: %w", base, err)
				}
				baseDate = t
			}

			p := a.expressionParser()
			if strict {
				p = timeutil.NewExpressionParser(timeutil.WithStrictRanges())
			}

			phrases := []string{text}
			if all {
				phrases = timeutil.Candidates(text)
			}

			found := 0
			for _, phrase := range phrases {
				t, ok := p.Parse(phrase, baseDate, future)
				if !ok {
					continue
				}
				found++
				fmt.Fprintln(cmd.OutOrStdout(), t.Format(time.RFC3339))
			}
			if found == 0 {
				return errNoTime
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "calendar day to place the time on (default today)")
	cmd.Flags().BoolVar(&future, "future", false, "move times that already passed to the next day")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject out-of-range hours and minutes")
	cmd.Flags().BoolVar(&all, "all", false, "resolve every time mentioned, one per line")
	return cmd
}
