package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/conveydesk/conveydesk/internal/client"
	"github.com/conveydesk/conveydesk/internal/config"
	"github.com/conveydesk/conveydesk/internal/conveyancing"
	"github.com/conveydesk/conveydesk/internal/logger"
	"github.com/conveydesk/conveydesk/internal/session"
	"github.com/conveydesk/conveydesk/internal/version"
)

// errRequestFailed is returned when the API call failed. The envelope has already been printed, so main only sets the exit status.
var errRequestFailed = errors.New("request failed")

type app struct {
	out    io.Writer
	errOut io.Writer

	// persistent flags
	envFile     string
	sessionFile string
	noColor     bool
	verbose     bool

	cfg    *config.Config
	logger *slog.Logger
	store  *session.FileStore
	client *client.Client
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "conveydesk",
		Short: "Command line client for the conveyancing API",
		Long: `Calls the conveyancing API with the stored session.

Every API response is printed as a result envelope: {"ok", "status", "error", "results"}.
The exit status is 1 when the request failed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.Version = version.Get().String()
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "optional file of environment variables")
	flags.StringVar(&a.sessionFile, "session-file", "", "session file (default $SESSION_FILE or the user config dir)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable syntax highlighting")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log each API call to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newRequestCmd(a),
		newListCmd(a),
		newGetCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.NewConfig(a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	// the CLI always logs human readable text to stderr
	a.logger = logger.NewLogger(a.errOut, level, "dev")

	path := a.sessionFile
	if path == "" {
		path = cfg.SessionFile
	}
	if path == "" {
		if path, err = session.DefaultPath(); err != nil {
			return err
		}
	}
	a.store = session.NewFileStore(path)

	a.client = client.NewClient(cfg.APIBaseURL,
		client.WithSessionStore(a.store),
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(a.logger),
	)
	return nil
}

func (a *app) service() *conveyancing.Service {
	return conveyancing.NewService(a.client, nil)
}

func (a *app) auth() *conveyancing.Auth {
	return conveyancing.NewAuth(a.client, a.store, nil)
}

// printResult prints the envelope and converts a failure into errRequestFailed
func (a *app) printResult(res client.Result) error {
	if err := a.printJSON(res); err != nil {
		return err
	}
	if !res.OK {
		a.logger.Debug("request failed", slog.String("detail", res.Err().Error()))
		return errRequestFailed
	}
	return nil
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	data = append(data, '\n')

	if a.colorEnabled() {
		return quick.Highlight(a.out, string(data), "json", "terminal256", "monokai")
	}
	_, err = a.out.Write(data)
	return err
}

func (a *app) colorEnabled() bool {
	if a.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := a.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
