package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"callnotes/config"
	"callnotes/linkpreview"
	"callnotes/llm"
	"callnotes/logging"
	"callnotes/service"
	"callnotes/storage"
	"callnotes/timeutil"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	envFile string
	cfg     *config.Config
	log     zerolog.Logger
}

// NewRootCommand builds the callnotes command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "callnotes",
		Short:         "Call notes with reminders picked out of the text",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(a.envFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.log = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to preload (ignored when missing)")

	root.AddCommand(
		newServeCommand(a),
		newParseCommand(a),
		newNotesCommand(a),
		newRemindersCommand(a),
		newContactsCommand(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) expressionParser() *timeutil.ExpressionParser {
	var opts []timeutil.Option
	if a.cfg.StrictTimeRanges {
		opts = append(opts, timeutil.WithStrictRanges())
	}
	return timeutil.NewExpressionParser(opts...)
}

// openNotebook opens the database and wires the notebook with its optional
// collaborators. The returned close function releases the database.
func (a *app) openNotebook() (*service.Notebook, storage.Store, func(), error) {
	db, err := storage.Open(a.cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}
	closeDB := func() {
		if err := storage.Close(db); err != nil {
			a.log.Warn().Err(err).Msg("close database")
		}
	}

	store := storage.NewSQLiteStore(db)
	return a.notebook(store), store, closeDB, nil
}

func (a *app) notebook(store storage.Store) *service.Notebook {
	windows := timeutil.NewWindowParser(a.cfg.DefaultListWindow, a.cfg.MaxListWindow)
	nb := service.NewNotebook(store, a.expressionParser(), windows, service.NewWhitelist(a.cfg.AllowedChats), a.log).
		WithLocation(a.cfg.Location).
		WithLinkPreviewer(linkpreview.NewPreviewer(a.cfg.LinkPreviewTimeout, a.log))
	if c := llm.New(a.cfg, a.log); c != nil {
		nb.WithLLM(c)
	}
	return nb
}

func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location)
}
