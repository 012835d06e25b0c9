package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/config"
	"github.com/chris-regnier/diaryweb/internal/logging"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/chris-regnier/diaryweb/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	cfgFile        string
	jsonOutput     bool
	serverURL      string
	storageBackend string
	appConfig      *config.Config
	logger         *zap.SugaredLogger
	api            *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "diaryweb",
	Short: "A personal diary served over HTTP",
	Long: `diaryweb keeps diary entries with optional image, video and audio
attachments behind a REST API. Run "diaryweb serve" to host the API; every
other command is a client of a running server. With no arguments on a
terminal, diaryweb opens an interactive browser.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		appConfig = cfg

		if serverURL != "" {
			appConfig.Client.ServerURL = serverURL
		}
		if storageBackend != "" {
			appConfig.Storage = storageBackend
		}

		logger, err = logging.New(appConfig.Log.Level, appConfig.Log.Format)
		if err != nil {
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient()
		if err != nil {
			return err
		}
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			// Non-TTY: print the entry list instead
			return listRun(cmd.Context(), cmd.OutOrStdout(), c, listOptions{})
		}
		return ui.RunTUI(cmd.Context(), c, ui.TUIConfig{
			MaxWidth: appConfig.MaxWidth,
			Theme:    ui.ResolveTheme(appConfig.Theme),
			Logger:   logger,
		})
	},
}

// apiClient returns the client for the configured server, building it on
// first use. Commands that only run locally never call it.
func apiClient() (*client.Client, error) {
	if api != nil {
		return api, nil
	}
	opts := []client.Option{
		client.WithTimeout(appConfig.Client.Timeout),
		client.WithAuth(tokenFile()),
	}
	c, err := client.New(appConfig.Client.ServerURL, opts...)
	if err != nil {
		return nil, userError(err)
	}
	api = c
	return api, nil
}

func tokenFile() auth.TokenFile {
	return auth.TokenFile{Path: appConfig.TokenFile()}
}

// Execute runs the root command and reports any failure on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if logger != nil {
		_ = logger.Sync()
	}
	return err
}

// exitError pins the exit code of an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitError{code: 1, err: err}
}

func userErrorf(format string, args ...any) error {
	return userError(fmt.Errorf(format, args...))
}

// ExitCode maps an error returned by Execute to a process exit code: 1 for
// problems with the user's input or a missing entry, 2 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var ve *client.ValidationError
	if errors.As(err, &ve) ||
		errors.Is(err, client.ErrNotFound) ||
		errors.Is(err, client.ErrUnauthorized) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrValidation) {
		return 1
	}
	var te *client.TransportError
	if errors.As(err, &te) && te.Status >= 400 && te.Status < 500 {
		return 1
	}
	return 2
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "diary server URL (default from client.server_url)")
	rootCmd.PersistentFlags().StringVar(&storageBackend, "storage", "", "storage backend for serve and mcp-serve (markdown|sqlite|postgres)")

	// Silence Cobra's built-in error and usage printing so we control stderr output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}
