// Package cli implements the kennel command-line interface: a thin front
// end over the application state and the remote fetcher.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/kennel/internal/appstate"
	"github.com/mesh-intelligence/kennel/internal/fetcher"
	"github.com/mesh-intelligence/kennel/internal/metrics"
	"github.com/mesh-intelligence/kennel/internal/paths"
	"github.com/mesh-intelligence/kennel/internal/storage"
	"github.com/mesh-intelligence/kennel/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// closeTimeout bounds flushing pending writes when a command ends.
const closeTimeout = 10 * time.Second

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
	metrics   bool
}

// app carries what one command invocation needs. Commands open the store
// through session, which closes everything when the command ends.
type app struct {
	flags    rootFlags
	v        *viper.Viper
	logger   *slog.Logger
	registry *prometheus.Registry
	recorder metrics.Recorder
}

// NewRootCmd creates the top-level "kennel" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "kennel",
		Short: "Browse dog breeds, keep favorites and photo notes",
		Long: "kennel fetches the breed catalog from TheDogAPI, caches it locally,\n" +
			"and keeps favorites, captured photos and settings between runs.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)")
	pf.BoolVar(&a.flags.metrics, "metrics", false, "print metrics to stderr when the command ends")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newBreedsCmd(a))
	root.AddCommand(newFavoritesCmd(a))
	root.AddCommand(newPhotosCmd(a))
	root.AddCommand(newSettingsCmd(a))

	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "kennel:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to a process exit code. Network and storage
// failures are system errors; everything else is a usage error.
func exitCode(err error) int {
	var netErr *types.NetworkError
	var storeErr *types.StoreError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &netErr), errors.As(err, &storeErr):
		return exitSysError
	default:
		return exitUserError
	}
}

// setup loads .env and config.yaml and builds the logger and recorder.
func (a *app) setup(cmd *cobra.Command) error {
	if err := loadDotEnv(); err != nil {
		return err
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	a.v = v

	level := a.flags.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	logger, err := newLogger(cmd.ErrOrStderr(), level, v.GetString(cfgKeyLogFormat))
	if err != nil {
		return err
	}
	a.logger = logger

	if a.flags.metrics {
		a.registry = prometheus.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(a.registry)
	} else {
		a.recorder = metrics.NoopRecorder{}
	}
	return nil
}

// newLogger builds a slog logger writing to w.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", format)
	}
}

// dataDir resolves the data directory.
func (a *app) dataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.v.GetString(cfgKeyDataDir))
}

// session is an open store with the state and fetcher built on it.
type session struct {
	store   types.Store
	state   *appstate.State
	fetcher *fetcher.Fetcher
}

// session opens the configured store, hydrates the state, runs fn and
// closes everything. Metrics are printed afterwards when requested.
func (a *app) session(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer a.dumpMetrics(cmd.ErrOrStderr())

	dataDir, err := a.dataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	storeCfg, err := storeConfig(a.v, dataDir)
	if err != nil {
		return err
	}
	fetchCfg, err := fetcherConfig(a.v)
	if err != nil {
		return err
	}

	store, err := storage.Open(ctx, storeCfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()

	state := appstate.New(store,
		appstate.WithLogger(a.logger),
		appstate.WithRecorder(a.recorder),
		appstate.WithWriteStrategy(storeCfg.GetWriteStrategy(), storeCfg.BatchInterval))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := state.Close(closeCtx); cerr != nil {
			a.logger.Warn("pending writes not flushed", "error", cerr)
		}
	}()
	state.Initialize(ctx)

	f, err := fetcher.New(store, fetchCfg,
		fetcher.WithLogger(a.logger),
		fetcher.WithRecorder(a.recorder))
	if err != nil {
		return err
	}

	return fn(ctx, &session{store: store, state: state, fetcher: f})
}

// dumpMetrics writes the registry in text exposition format.
func (a *app) dumpMetrics(w io.Writer) {
	if a.registry == nil {
		return
	}
	families, err := a.registry.Gather()
	if err != nil {
		a.logger.Warn("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			a.logger.Warn("write metrics", "error", err)
			return
		}
	}
}
