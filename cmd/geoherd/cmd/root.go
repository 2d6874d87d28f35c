// Package cmd contains the geoherd command line interface implementation
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/els0r/geoherd/pkg/conf"
	"github.com/els0r/geoherd/pkg/defaults"
	"github.com/els0r/geoherd/pkg/herd"
	"github.com/els0r/geoherd/pkg/places"
	"github.com/els0r/geoherd/pkg/registry"
	"github.com/els0r/geoherd/pkg/topology"
	"github.com/els0r/geoherd/pkg/version"
	"github.com/els0r/telemetry/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ghconf "github.com/els0r/geoherd/cmd/geoherd/config"
	ghserver "github.com/els0r/geoherd/pkg/api/herd/server"
)

func Execute() error {
	rootCmd, err := newRootCmd(run)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.Execute()
}

// runFunc is the type of the function that is called when the root command is
// executed. It's defined mainly for testing purposes
type runFunc func(ctx context.Context, cfg *ghconf.Config, name string) error

func newRootCmd(run runFunc) (*cobra.Command, error) {
	cfg := ghconf.New()

	rootCmd := &cobra.Command{
		Use:   "geoherd <server name>",
		Short: "geoherd is a federated location-tracking server",
		Long: `geoherd is one member of a statically configured herd of location-tracking
servers. It records the most recent position of every client that talks to it,
gossips updates to its configured neighbors and answers proximity queries by
delegating to an external places-of-interest service.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			err := initConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return initLogging()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, args[0])
		},
	}

	err := registerFlags(rootCmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to register flags: %w", err)
	}

	return rootCmd, nil
}

const (
	flagTopology = "topology"

	apiKey         = "api"
	flagAPIAddr    = apiKey + ".addr"
	flagAPIMetrics = apiKey + ".metrics"

	placesKey     = "places"
	flagPlacesURL = placesKey + ".url"
	flagPlacesKey = placesKey + ".key"
)

func registerFlags(cmd *cobra.Command, cfg *ghconf.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration must not be nil")
	}

	err := conf.RegisterFlags(cmd)
	if err != nil {
		return err
	}

	pflags := cmd.PersistentFlags()

	pflags.StringVar(&cfg.Topology, flagTopology, "", "path to topology file (built-in herd table when empty)")

	// api config bindings (optional section)
	pflags.StringVar(&cfg.API.Addr, flagAPIAddr, "", "status API server address (API disabled when empty)")
	pflags.BoolVar(&cfg.API.Metrics, flagAPIMetrics, false, "enable status API metrics")

	// places oracle bindings
	pflags.StringVar(&cfg.Places.URL, flagPlacesURL, defaults.PlacesBaseURL, "places oracle base URL")
	pflags.StringVar(&cfg.Places.Key, flagPlacesKey, "", "places oracle API key")

	return viper.BindPFlags(pflags)
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cfg *ghconf.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration must not be nil")
	}

	path := viper.GetString(conf.ConfigFile)
	if path != "" {
		viper.SetConfigFile(path)

		err := viper.ReadInConfig()
		if err != nil {
			return fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "__"))
	viper.AutomaticEnv()

	err := viper.Unmarshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %v", err)
	}

	return nil
}

func initLogging() error {
	loggerOpts := []logging.Option{
		logging.WithVersion(version.Short()),
	}

	dst := viper.GetString(conf.LogDestination)
	if dst != "" {
		loggerOpts = append(loggerOpts, logging.WithFileOutput(dst))
	}

	_, err := logging.Init(
		logging.LevelFromString(viper.GetString(conf.LogLevel)),
		logging.Encoding(viper.GetString(conf.LogEncoding)),
		loggerOpts...,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

func run(ctx context.Context, cfg *ghconf.Config, name string) error {
	topo := topology.Default()
	if cfg.Topology != "" {
		var err error
		topo, err = topology.NewFromFile(cfg.Topology)
		if err != nil {
			return fmt.Errorf("failed to load topology: %w", err)
		}
	}

	if !topo.Contains(name) {
		return fmt.Errorf("invalid server name %q, valid names: %s", name, strings.Join(topo.Names(), ", "))
	}

	// the topology carries the herd-wide oracle access parameters; flags and
	// config file override them for a single instance
	oracleURL := cfg.Places.URL
	if topo.Places.URL != "" && oracleURL == defaults.PlacesBaseURL {
		oracleURL = topo.Places.URL
	}
	oracleKey := cfg.Places.Key
	if oracleKey == "" {
		oracleKey = topo.Places.Key
	}

	// We quit on encountering SIGTERM or SIGINT (see further down)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	logger := logging.FromContext(ctx)

	debug := logging.LevelFromString(viper.GetString(conf.LogLevel)) == logging.LevelDebug

	reg := registry.New()
	oracle := places.New(oracleURL, oracleKey,
		places.WithRequestLogging(debug),
	)

	srv := herd.New(name, topo, reg, oracle)

	// create status API server and start listening for requests
	var apiServer *ghserver.Server
	if cfg.API.Addr != "" {
		apiServer = ghserver.New(cfg.API.Addr, name, topo, reg,
			ghserver.WithMetrics(cfg.API.Metrics),
			ghserver.WithDebugMode(debug),
		)
		go func() {
			err := apiServer.Serve()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Errorf("status API server terminated: %v", err)
			}
		}()
	}

	err := srv.Run(ctx)
	if err != nil {
		return fmt.Errorf("herd server terminated: %w", err)
	}

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaults.APIShutdownGracePeriod)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("failed to shut down status API server: %v", err)
		}
	}

	return nil
}
