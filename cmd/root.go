// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jdfalk/libshelf/internal/config"
	"github.com/jdfalk/libshelf/internal/events"
	"github.com/jdfalk/libshelf/internal/library"
	"github.com/jdfalk/libshelf/internal/likes"
	"github.com/jdfalk/libshelf/internal/registry"
	"github.com/jdfalk/libshelf/internal/server"
	"github.com/jdfalk/libshelf/internal/storage"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "libshelf",
	Short: "Catalog the books you own and share your shelf",
	Long: `libshelf keeps a personal catalog of books with ratings, reading
status and likes. It stores the library in MongoDB when a cloud URI is
configured and falls back to a local pebble (or sqlite) store otherwise.

Public libraries are listed in a shared registry, and any library can be
published as a read-only snapshot behind a share link.`,
	SilenceUsage: true,
}

// services is everything a command needs to work on the library.
type services struct {
	sel     *storage.Selection
	hub     *events.Hub
	library *library.Service
	likes   *likes.Service
}

func (s *services) Close() {
	if err := s.sel.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
	}
}

// openServices probes the configured backends and wires the services.
func openServices(ctx context.Context) (*services, error) {
	cfg := config.AppConfig
	sel, err := storage.Open(ctx, storage.Options{
		DataDir:      cfg.DataDir,
		LocalEngine:  cfg.LocalEngine,
		EnableSQLite: cfg.EnableSQLite,
		Cloud: storage.CloudOptions{
			URI:            cfg.Cloud.URI,
			Database:       cfg.Cloud.Database,
			ConnectTimeout: cfg.Cloud.ConnectTimeout,
			OpTimeout:      cfg.Cloud.OpTimeout,
		},
		Principal: cfg.Cloud.Principal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	hub := events.NewHub()
	registry.NewProjector(sel.Store).Attach(hub)

	return &services{
		sel:     sel,
		hub:     hub,
		library: library.NewService(sel.Store, hub, sel.OwnerID, cfg.ShareBaseURL),
		likes:   likes.NewService(sel.Store, hub),
	}, nil
}

// withServices opens the services for the duration of fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Start the HTTP API that serves the library, the registry and shared snapshots.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(context.Background())
		if err != nil {
			return err
		}
		defer svc.Close()

		deps := server.Deps{
			Library:            svc.library,
			Likes:              svc.likes,
			Settings:           svc.sel.Local,
			Hub:                svc.hub,
			RateLimitPerMinute: config.AppConfig.RateLimitPerMinute,
			RateLimitBurst:     config.AppConfig.RateLimitBurst,
		}
		if fs, ok := svc.sel.Store.(*storage.FailoverStore); ok {
			deps.Degraded = fs
		}
		srv := server.NewServer(deps)

		cfg := server.GetDefaultServerConfig()
		cfg.Host = config.AppConfig.Host
		cfg.Port = strconv.Itoa(config.AppConfig.Port)
		if rt := cmd.Flag("read-timeout").Value.String(); rt != "" {
			if d, err := time.ParseDuration(rt); err == nil {
				cfg.ReadTimeout = d
			}
		}
		if wt := cmd.Flag("write-timeout").Value.String(); wt != "" {
			if d, err := time.ParseDuration(wt); err == nil {
				cfg.WriteTimeout = d
			}
		}
		if it := cmd.Flag("idle-timeout").Value.String(); it != "" {
			if d, err := time.ParseDuration(it); err == nil {
				cfg.IdleTimeout = d
			}
		}

		fmt.Printf("Serving library %s from the %s store\n", svc.library.Owner(), svc.library.Backend())
		return srv.Start(cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.libshelf.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the local store and backups (default ~/.libshelf)")
	rootCmd.PersistentFlags().String("local-engine", "pebble", "local store engine: pebble (default) or sqlite")
	rootCmd.PersistentFlags().Bool("enable-sqlite3-i-know-the-risks", false, "enable the SQLite3 local engine (WARNING: cross-compilation issues, pebble recommended)")
	rootCmd.PersistentFlags().String("cloud-uri", "", "MongoDB connection URI; empty keeps everything local")
	rootCmd.PersistentFlags().String("principal", "", "library id to act as in the cloud store")

	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("local_engine", rootCmd.PersistentFlags().Lookup("local-engine"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("cloud.uri", rootCmd.PersistentFlags().Lookup("cloud-uri"))
	viper.BindPFlag("cloud.principal", rootCmd.PersistentFlags().Lookup("principal"))

	rootCmd.AddCommand(serveCmd)

	// Add serve command specific flags
	serveCmd.Flags().Int("port", 8080, "port to run the web server on")
	serveCmd.Flags().String("host", "localhost", "host to bind the web server to")
	serveCmd.Flags().String("read-timeout", "15s", "read timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("write-timeout", "15s", "write timeout (e.g. 15s, 1m)")
	serveCmd.Flags().String("idle-timeout", "60s", "idle timeout (e.g. 60s, 2m)")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.ConfigFileName, ".yaml"))
	}

	viper.SetEnvPrefix("LIBSHELF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	config.InitConfig()

	if err := os.MkdirAll(config.AppConfig.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
	}
}
