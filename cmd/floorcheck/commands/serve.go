package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/floorcheck/catalog"
	"github.com/teranos/floorcheck/config"
	"github.com/teranos/floorcheck/directory"
	"github.com/teranos/floorcheck/errors"
	"github.com/teranos/floorcheck/internal/version"
	"github.com/teranos/floorcheck/logger"
	"github.com/teranos/floorcheck/maint"
	"github.com/teranos/floorcheck/reader"
	"github.com/teranos/floorcheck/server"
	"github.com/teranos/floorcheck/session"
)

// ServeCmd starts the kiosk daemon
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the kiosk daemon",
	Long: `Run the full kiosk stack: the HTTP and WebSocket server, the card
reader listener, the session manager and the assignment generator ticker.`,
	RunE: runServe,
}

var (
	serveDBPath   string
	serveNoReader bool
	serveNoTicker bool
)

func init() {
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
	ServeCmd.Flags().BoolVar(&serveNoReader, "no-reader", false, "Run without a card reader (API only)")
	ServeCmd.Flags().BoolVar(&serveNoTicker, "no-ticker", false, "Disable the periodic assignment generator")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := openDatabase(serveDBPath)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer database.Close()

	if err := catalog.Seed(database); err != nil {
		return errors.Wrap(err, "failed to seed catalog")
	}

	// Employee directory: cached lookups against the plant HR endpoint.
	// Without a configured endpoint the cache alone serves lookups.
	var remote directory.Resolver
	if cfg.Directory.BaseURL != "" {
		remote = directory.NewHTTPResolver(
			cfg.Directory.BaseURL,
			cfg.Directory.APIKey,
			time.Duration(cfg.Directory.TimeoutSeconds)*time.Second,
		)
	}
	dir := directory.NewService(
		directory.NewCacheStore(database),
		remote,
		time.Duration(cfg.Directory.CacheTTLMinutes)*time.Minute,
	)

	// Sector failover order: database bindings win, config is the fallback
	sectors, err := kioskSectors(database, cfg)
	if err != nil {
		return err
	}

	var ticker *maint.Ticker
	if !serveNoTicker {
		ticker = maint.NewTicker(maint.NewGenerator(database), maint.TickerConfig{
			Interval: time.Duration(cfg.Generator.IntervalSeconds) * time.Second,
		}, logger.Logger)
	}

	var sessions *session.Manager
	var source *reader.LineSource
	if !serveNoReader {
		source = reader.NewLineSource(cfg.Reader.Addr)
		sessions = session.NewManager(session.Config{
			Directory: dir,
			Resolver:  maint.NewResolver(database),
			Source:    source,
			Sectors:   sectors,
		})
	}

	srv := server.NewServer(cfg, database, dir, logger.Logger, server.Options{
		Ticker:   ticker,
		Sessions: sessions,
	})

	printStartupBanner(cfg, sectors)

	// Hot-reload for non-structural settings; port/reader changes need a
	// restart and only log a notice
	if configPath := config.ActiveConfigFile(); configPath != "" {
		watcher, err := config.NewConfigWatcher(configPath)
		if err != nil {
			logger.Logger.Warnw("Config watcher unavailable", "error", err)
		} else {
			watcher.OnReload(func(newCfg *config.Config) error {
				if newCfg.Reader.Addr != cfg.Reader.Addr || portOf(newCfg) != portOf(cfg) {
					logger.Logger.Warnw("Reader or server address changed; restart required to apply")
				}
				return logger.Initialize(newCfg.Server.LogJSON)
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	if ticker != nil {
		ticker.Start()
		defer ticker.Stop()
	}
	if sessions != nil {
		sessions.SetNotifier(srv)
		source.Start()
		defer source.Stop()
		sessions.Start()
		defer sessions.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return errors.Wrap(err, "server failed")
	case <-sigChan:
		pterm.Info.Println("\nShutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			shutdownDone <- srv.Shutdown(ctx)
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("\nForce shutdown - exiting immediately")
			os.Exit(1)
			return nil // unreachable
		}
	}
}

// kioskSectors resolves the failover order for this kiosk. Database bindings
// take precedence; the config list covers unprovisioned kiosks.
func kioskSectors(database *sql.DB, cfg *config.Config) ([]int64, error) {
	bound, err := catalog.NewKioskStore(database).SectorsFor(cfg.Kiosk.Name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve kiosk sectors")
	}
	if len(bound) > 0 {
		ids := make([]int64, len(bound))
		for i, sec := range bound {
			ids[i] = sec.ID
		}
		return ids, nil
	}
	return cfg.Kiosk.Sectors, nil
}

func portOf(cfg *config.Config) int {
	if cfg.Server.Port != nil {
		return *cfg.Server.Port
	}
	return config.DefaultServerPort
}

func printStartupBanner(cfg *config.Config, sectors []int64) {
	info := version.Get()
	port := portOf(cfg)

	pterm.DefaultSection.Println("floorcheck kiosk daemon")
	pterm.Info.Printf("Version:  %s (%s)\n", info.Version, info.Short())
	pterm.Info.Printf("Kiosk:    %s\n", cfg.Kiosk.Name)
	pterm.Info.Printf("Port:     %d\n", port)
	pterm.Info.Printf("Database: %s\n", cfg.Database.Path)
	pterm.Info.Printf("Reader:   %s\n", cfg.Reader.Addr)
	if len(sectors) > 0 {
		pterm.Info.Printf("Sectors:  %v\n", sectors)
	} else {
		pterm.Warning.Println("No sectors bound; card sessions will be rejected")
	}
	pterm.Info.Println("Press Ctrl+C to stop")
}
