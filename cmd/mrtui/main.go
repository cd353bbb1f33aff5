// Command mrtui plays MapRoulette challenges from the terminal.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mrtui/internal/app"
	"mrtui/internal/devtools"
	"mrtui/internal/telemetry"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type flags struct {
	config     string
	server     string
	session    string
	editor     string
	difficulty int
	logPath    string
	demo       bool
	debug      bool
	ascii      bool
	dev        bool
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:          "mrtui [share-link]",
		Short:        "Fix OpenStreetMap one MapRoulette task at a time",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Link = args[0]
			}
			return run(cmd.Context(), cfg)
		},
	}

	pf := root.Flags()
	pf.StringVar(&f.config, "config", "", "config file (default "+app.DefaultConfigPath()+")")
	pf.StringVar(&f.server, "server", "", "MapRoulette server URL")
	pf.StringVar(&f.session, "session", "", "session cookie from the MapRoulette website")
	pf.StringVar(&f.editor, "editor", "", "default editor: josm or id")
	pf.IntVar(&f.difficulty, "difficulty", 0, "preferred difficulty 1-3, 0 for any")
	pf.StringVar(&f.logPath, "log", "", "write JSON event log to this file")
	pf.BoolVar(&f.demo, "demo", false, "play against a built-in offline server")
	pf.BoolVar(&f.debug, "debug", false, "verbose UI logging")
	pf.BoolVar(&f.ascii, "ascii", false, "ASCII-only borders")
	pf.BoolVar(&f.dev, "dev", false, "serve the /__dev control endpoints")

	root.AddCommand(newDemoServerCmd(), newVersionCmd())
	return root
}

// loadConfig layers flags that were set explicitly over file and env values.
func loadConfig(cmd *cobra.Command, f flags) (app.Config, error) {
	path, required := f.config, true
	if path == "" {
		path, required = app.DefaultConfigPath(), false
	}
	cfg, err := app.LoadConfig(path, required)
	if err != nil {
		return app.Config{}, err
	}

	set := cmd.Flags().Changed
	if set("server") {
		cfg.Server = f.server
	}
	if set("session") {
		cfg.Session = f.session
	}
	if set("editor") {
		cfg.Editor = f.editor
	}
	if set("difficulty") {
		cfg.Difficulty = f.difficulty
	}
	if set("log") {
		cfg.LogPath = f.logPath
	}
	if set("demo") {
		cfg.Demo = f.demo
	}
	if set("debug") {
		cfg.Debug = f.debug
	}
	if set("ascii") {
		cfg.ASCIIOnly = f.ascii
	}
	if set("dev") {
		cfg.Dev = f.dev
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg app.Config) error {
	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "mrtui",
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	cfg.Version = version
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func newDemoServerCmd() *cobra.Command {
	var (
		addr           string
		fixtures       string
		requireSession bool
	)
	cmd := &cobra.Command{
		Use:   "demo-server",
		Short: "Serve the offline demo API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx := devtools.DemoFixtures()
			if fixtures != "" {
				loaded, err := devtools.LoadFixtures(cmd.Context(), fixtures)
				if err != nil {
					return err
				}
				fx = loaded
			}
			backend := devtools.NewBackend(fx)
			backend.RequireSession = requireSession
			base, shutdown, err := backend.Start(addr)
			if err != nil {
				return err
			}
			log.Printf("demo server listening on %s", base)
			<-cmd.Context().Done()
			return shutdown(context.Background())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9000", "listen address")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "directory of challenge.yaml fixtures to serve instead of the demo world")
	cmd.Flags().BoolVar(&requireSession, "require-session", false, "answer 401 without a session cookie")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("mrtui " + version)
		},
	}
}
