// Package cli implements the formbuilder command line: schema management,
// import and export, terminal filling and the HTTP server.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/internal/config"
	"github.com/goliatone/go-formbuilder/internal/logging"
	"github.com/goliatone/go-formbuilder/pkg/renderers/tui"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

// Option configures an App.
type Option func(*App)

// WithOutput redirects command output and logs.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// WithStore bypasses the configured backend.
func WithStore(s store.Store) Option {
	return func(a *App) {
		a.injected = s
	}
}

// WithPromptDriver replaces the survey driver used by fill.
func WithPromptDriver(driver tui.PromptDriver) Option {
	return func(a *App) {
		a.driver = driver
	}
}

// WithLookupEnv replaces os.LookupEnv for configuration overrides.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(a *App) {
		a.lookupEnv = lookup
	}
}

// App holds the state shared by every command after configuration has
// been loaded.
type App struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	driver    tui.PromptDriver
	injected  store.Store

	installLogger bool

	configPath string
	envFile    string
	storeFlag  string
	pathFlag   string
	engineFlag string

	cfg        config.Config
	logger     *slog.Logger
	evaluator  formbuilder.Evaluator
	store      store.Store
	closeStore func() error
}

// Execute runs the CLI against os.Args and returns the process exit code.
func Execute() int {
	root := NewRootCommand(func(a *App) { a.installLogger = true })
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "formbuilder: %v\n", err)
		}
		return 1
	}
	return 0
}

// errSilent marks failures whose details were already printed.
var errSilent = errors.New("cli: failed")

// NewRootCommand builds the command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	app := &App{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		lookupEnv:  os.LookupEnv,
		closeStore: func() error { return nil },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}

	root := &cobra.Command{
		Use:   "formbuilder",
		Short: "Build, store and fill dynamic forms",
		Long: `formbuilder manages form schemas whose fields may be derived from
other fields through expressions.

Configuration is read from --config (YAML or TOML), then the --env-file
dotenv file, then FORMBUILDER_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return app.closeStore()
		},
	}
	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (.yaml, .yml or .toml)")
	flags.StringVar(&app.envFile, "env-file", ".env", "dotenv file with FORMBUILDER_* overrides")
	flags.StringVar(&app.storeFlag, "store", "", "store driver: memory, file or sqlite")
	flags.StringVar(&app.pathFlag, "store-path", "", "store file or database path")
	flags.StringVar(&app.engineFlag, "engine", "", "expression engine: builtin or expr")

	root.AddCommand(
		app.listCommand(),
		app.showCommand(),
		app.deleteCommand(),
		app.importCommand(),
		app.exportCommand(),
		app.checkCommand(),
		app.fillCommand(),
		app.serveCommand(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.Options{
		Path:      a.configPath,
		EnvFile:   a.envFile,
		LookupEnv: a.lookupEnv,
	})
	if err != nil {
		return err
	}
	if a.storeFlag != "" {
		cfg.Store.Driver = a.storeFlag
	}
	if a.pathFlag != "" {
		cfg.Store.Path = a.pathFlag
	}
	if a.engineFlag != "" {
		cfg.Eval.Engine = a.engineFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.installLogger {
		a.logger, err = logging.Install(cfg.Log, a.stderr)
	} else {
		a.logger, err = logging.New(cfg.Log, a.stderr)
	}
	if err != nil {
		return err
	}
	a.evaluator, err = formbuilder.NewEvaluator(cfg.Eval.Engine, cfg.Limits())
	if err != nil {
		return err
	}

	if a.injected != nil {
		a.store = a.injected
		return nil
	}
	s, closeFn, err := formbuilder.OpenStore(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return err
	}
	a.store, a.closeStore = s, closeFn
	a.logger.Debug("store opened",
		slog.String("driver", cfg.Store.Driver),
		slog.String("path", cfg.Store.Path),
		slog.String("command", cmd.Name()),
	)
	return nil
}
