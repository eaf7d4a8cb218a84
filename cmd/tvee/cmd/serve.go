package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/tvee/internal/alert"
	"github.com/jmylchreest/tvee/internal/database"
	"github.com/jmylchreest/tvee/internal/directory"
	"github.com/jmylchreest/tvee/internal/epg"
	"github.com/jmylchreest/tvee/internal/favorites"
	internalhttp "github.com/jmylchreest/tvee/internal/http"
	"github.com/jmylchreest/tvee/internal/http/handlers"
	"github.com/jmylchreest/tvee/internal/observability"
	"github.com/jmylchreest/tvee/internal/repository"
	"github.com/jmylchreest/tvee/internal/scheduler"
	"github.com/jmylchreest/tvee/internal/version"
	"github.com/jmylchreest/tvee/pkg/httpclient"
)

const xmltvJobName = "xmltv_refresh"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tvee API server",
	Long: `Start the tvee HTTP server.

The server exposes channel browsing, favorites, the programme guide and
playback control under /api/v1, live updates over SSE (/api/v1/events)
and WebSocket (/api/v1/events/ws), the HLS relay used as the backup
playback source (/relay/{channel_id}.m3u8) and the alert tone.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "server host")
	serveCmd.Flags().Int("port", 8080, "server port")
	serveCmd.Flags().String("public-url", "", "URL clients use to reach this server")
	serveCmd.Flags().String("database", "tvee.db", "database DSN")
	serveCmd.Flags().Bool("casting", false, "resolve playback through the casting route")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("server.public_url", serveCmd.Flags().Lookup("public-url"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("playback.casting", serveCmd.Flags().Lookup("casting"))
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Account.Validate(); err != nil {
		return err
	}
	if err := cfg.Probes.Validate(); err != nil {
		return err
	}

	logger := slog.Default()
	logger.Info("starting tvee",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("address", cfg.Server.Address()),
		slog.String("public_url", cfg.Server.BaseURL()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing database", slog.String("error", err.Error()))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	logger.Info("database ready", slog.String("driver", db.Driver()))

	favStore := favorites.NewStore(repository.NewFavoriteRepository(db.DB), logger)
	defer favStore.Close()

	provider := newXtreamClient(cfg)
	guide := epg.NewService(provider, observability.WithComponent(logger, "epg"))
	defer guide.Close()
	dir := directory.NewService(provider, favStore, guide, observability.WithComponent(logger, "directory"))

	stack := newPlaybackStack(cfg, logger, nil)
	defer stack.Close()

	sched := scheduler.NewScheduler().WithLogger(logger)
	if cfg.EPG.Enabled {
		if err := sched.Register(xmltvJobName, cfg.EPG.XMLTVSchedule, guide.Load); err != nil {
			return fmt.Errorf("registering %s: %w", xmltvJobName, err)
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	if cfg.EPG.Enabled {
		if err := sched.RunNow(xmltvJobName); err != nil {
			logger.Warn("initial guide load", slog.String("error", err.Error()))
		}
		go guide.Run(ctx, cfg.EPG.RefreshInterval)
	}
	go func() {
		if err := dir.Refresh(ctx); err != nil {
			logger.Warn("initial directory load", slog.String("error", err.Error()))
		}
	}()

	relayFetcher := httpclient.New(httpclient.DefaultConfig())

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)
	server.Mount(
		handlers.NewHealthHandler(version.Version).
			WithDB(db.DB).
			WithPlayer(stack.player).
			WithGuide(guide),
		handlers.NewDirectoryHandler(dir, logger),
		handlers.NewFavoritesHandler(favStore),
		handlers.NewEPGHandler(guide),
		handlers.NewPlaybackHandler(stack.player, logger),
		handlers.NewEventsHandler(stack.player, favStore, guide, logger).WithStatus(stack.player),
		handlers.NewRelayHandler(relayFetcher, relayUpstream(cfg), logger),
		handlers.NewAlertHandler(alert.NewTone(cfg.Alert), logger),
	)

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("tvee stopped")
	return nil
}
