package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/tvee/internal/alert"
	"github.com/jmylchreest/tvee/internal/config"
	"github.com/jmylchreest/tvee/internal/database"
	"github.com/jmylchreest/tvee/internal/engine/hlsprobe"
	"github.com/jmylchreest/tvee/internal/favorites"
	"github.com/jmylchreest/tvee/internal/health"
	"github.com/jmylchreest/tvee/internal/http/handlers"
	"github.com/jmylchreest/tvee/internal/liveness"
	"github.com/jmylchreest/tvee/internal/playback"
	"github.com/jmylchreest/tvee/internal/repository"
	"github.com/jmylchreest/tvee/internal/version"
	"github.com/jmylchreest/tvee/pkg/httpclient"
	"github.com/jmylchreest/tvee/pkg/xtream"
)

// playbackStack is the resolver-to-monitor chain behind a Player.
type playbackStack struct {
	bus    *playback.Bus
	engine *hlsprobe.Engine
	player *playback.Player
}

// newPlaybackStack wires a Player from configuration. sink may be nil.
func newPlaybackStack(cfg *config.Config, logger *slog.Logger, sink alert.ToneSink) *playbackStack {
	bus := playback.NewBus(logger)

	builder := playback.NewCandidateBuilder(playback.Account{
		BaseURL:  cfg.Account.BaseURL(),
		Username: cfg.Account.Username,
		Password: cfg.Account.Password,
	}, cfg.Server.BaseURL())

	verifier := liveness.NewVerifier(map[playback.CandidateKind]liveness.Probe{
		playback.KindPrimary:     {Endpoint: "primary", TokenSource: cfg.Probes.PrimaryTokenSource},
		playback.KindBackupRelay: {Endpoint: "backup", TokenSource: cfg.Probes.BackupTokenSource},
	}, cfg.Probes.Timeout).WithLogger(logger)

	casting := cfg.Playback.Casting
	resolver := playback.NewResolver(builder, verifier).
		WithBus(bus).
		WithCasting(func() bool { return casting }).
		WithLogger(logger)

	configurer := playback.NewConfigurer(playback.Settings{
		LiveEdgeOffset:         cfg.Playback.LiveEdgeOffset,
		ForwardBuffer:          cfg.Playback.ForwardBuffer,
		NetworkWhilePaused:     cfg.Playback.NetworkWhilePaused,
		WaitToMinimizeStalling: cfg.Playback.WaitToMinimizeStalling,
	}).WithBus(bus).WithLogger(logger)

	engine := hlsprobe.NewDefault(hlsprobe.DefaultFetchTimeout).
		WithMaxSegmentFailures(cfg.Playback.MaxSegmentFailures).
		WithLogger(logger)

	notifier := alert.NewNotifier(bus, cfg.Server.BaseURL()+handlers.ToneURLPath, sink).WithLogger(logger)

	monitor := health.NewMonitor(engine, health.Options{
		BufferingPoll: cfg.Playback.BufferingPoll,
		HealthyPoll:   cfg.Playback.HealthyPoll,
		StallTimeout:  cfg.Playback.StallTimeout,
	}).WithBus(bus).WithAlerter(notifier).WithLogger(logger)

	player := playback.NewPlayer(resolver, configurer, engine, monitor, bus).WithLogger(logger)

	return &playbackStack{bus: bus, engine: engine, player: player}
}

// Close stops playback and releases the engine and bus.
func (s *playbackStack) Close() {
	s.player.Stop()
	s.engine.Close()
	s.bus.Close()
}

// newXtreamClient builds the provider API client on the shared HTTP client stack.
func newXtreamClient(cfg *config.Config) *xtream.Client {
	upstream := httpclient.New(httpclient.DefaultConfig())
	return xtream.NewClient(
		cfg.Account.BaseURL(),
		cfg.Account.Username,
		cfg.Account.Password,
		xtream.WithHTTPClient(upstream.StandardClient()),
		xtream.WithUserAgent(version.UserAgent()),
	)
}

// relayUpstream returns the primary HLS URL the relay re-serves for a channel.
func relayUpstream(cfg *config.Config) func(int) string {
	base := cfg.Account.BaseURL()
	user, pass := cfg.Account.Username, cfg.Account.Password
	return func(channelID int) string {
		return xtream.LiveStreamURL(base, user, pass, channelID, xtream.ExtensionHLS)
	}
}

// openFavorites opens the database, applies migrations and returns the
// favorites store. The returned cleanup closes both.
func openFavorites(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*favorites.Store, func(), error) {
	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	store := favorites.NewStore(repository.NewFavoriteRepository(db.DB), logger)
	cleanup := func() {
		store.Close()
		if err := db.Close(); err != nil {
			logger.Warn("closing database", slog.String("error", err.Error()))
		}
	}
	return store, cleanup, nil
}
