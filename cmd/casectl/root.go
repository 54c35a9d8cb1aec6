package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/client"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/session"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	apiURL      string
	sessionPath string
	timeout     time.Duration
	verbose     bool
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "casectl", "session.json")
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "casectl",
		Short:         "Work with underwriting cases from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if g.verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
				Level(level).With().Timestamp().Logger()
		},
	}

	apiDefault := os.Getenv("CASE_API_URL")
	if apiDefault == "" {
		apiDefault = "http://localhost:8000/api"
	}
	root.PersistentFlags().StringVar(&g.apiURL, "api", apiDefault, "Case desk API base URL (or set CASE_API_URL)")
	root.PersistentFlags().StringVar(&g.sessionPath, "session", defaultSessionPath(), "Session state file")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 3*time.Minute, "Request timeout")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newListCmd(g),
		newShowCmd(g),
		newFieldsCmd(),
		newValidateCmd(g),
		newUploadCmd(g),
		newEditCmd(g),
		newAnalyzeCmd(g),
		newDecideCmd(g),
		newRenameCmd(g),
		newDeleteCmd(g),
		newPredictCmd(g),
	)
	return root
}

func (g *globals) client() *client.Client {
	return client.New(g.apiURL)
}

func (g *globals) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, g.timeout)
}

// sessionStore opens and hydrates the session state file.
func (g *globals) sessionStore() (*session.Store, error) {
	storage, err := session.NewFileStorage(g.sessionPath)
	if err != nil {
		return nil, err
	}
	store := session.NewStore(storage)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}
