package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/tvee/internal/alert"
	internalhttp "github.com/jmylchreest/tvee/internal/http"
	"github.com/jmylchreest/tvee/internal/http/handlers"
	"github.com/jmylchreest/tvee/internal/playback"
	"github.com/jmylchreest/tvee/internal/version"
	"github.com/jmylchreest/tvee/pkg/httpclient"
)

// errPlaybackFailed is returned when the monitor reports a terminal state.
var errPlaybackFailed = errors.New("playback failed")

var playCmd = &cobra.Command{
	Use:   "play <channel-id>",
	Short: "Play a channel headless and report its health",
	Long: `Resolve and play a channel without a UI, printing playback events
until the duration elapses, playback fails or the process is interrupted.

The HLS relay and alert tone are served locally while playing so the
backup source stays reachable. The terminal bell rings on failure when
alert.bell is enabled.

Exit status is 2 when no source could be resolved and 1 on any other
failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Bool("casting", false, "resolve through the casting route")
	playCmd.Flags().Duration("duration", 0, "stop after this long (0 plays until interrupted)")
	playCmd.Flags().Bool("bell", true, "ring the terminal bell on failure")

	mustBindPFlag("playback.casting", playCmd.Flags().Lookup("casting"))
}

func runPlay(cmd *cobra.Command, args []string) error {
	channelID, err := strconv.Atoi(args[0])
	if err != nil || channelID <= 0 {
		return fmt.Errorf("invalid channel id %q", args[0])
	}

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

	bell := viper.GetBool("alert.bell")
	if cmd.Flags().Changed("bell") {
		bell, _ = cmd.Flags().GetBool("bell")
	}
	var sink alert.ToneSink
	if bell {
		sink = alert.NewBellSink(os.Stderr)
	}

	logger := slog.Default()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	duration, _ := cmd.Flags().GetDuration("duration")
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	stack := newPlaybackStack(cfg, logger, sink)
	defer stack.Close()

	// Local origin for the relay candidate and the tone URL carried by alerts.
	origin := internalhttp.NewServer(cfg.Server, logger, version.Version)
	origin.Mount(
		handlers.NewRelayHandler(httpclient.New(httpclient.DefaultConfig()), relayUpstream(cfg), logger),
		handlers.NewAlertHandler(alert.NewTone(cfg.Alert), logger),
	)
	originCtx, stopOrigin := context.WithCancel(context.Background())
	defer stopOrigin()
	go func() {
		if err := origin.ListenAndServe(originCtx); err != nil {
			logger.Warn("relay origin stopped", slog.String("error", err.Error()))
		}
	}()

	sub := stack.player.Subscribe(32)
	defer stack.player.Unsubscribe(sub.ID)

	failed := make(chan playback.Event, 1)
	go printEvents(cmd.OutOrStdout(), sub.Events, failed)

	session, err := stack.player.Start(ctx, channelID)
	if err != nil {
		if errors.Is(err, playback.ErrSourceUnavailable) && sink != nil {
			_ = sink.Ring(context.Background())
		}
		return fmt.Errorf("starting channel %d: %w", channelID, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "playing channel %d via %s (session %s)\n",
		session.ChannelID, session.Candidate.Kind, session.ID)

	select {
	case <-ctx.Done():
		return nil
	case e := <-failed:
		return fmt.Errorf("%w: %s", errPlaybackFailed, e.Health)
	}
}

// printEvents writes one line per playback event and reports the first
// terminal health event on failed.
func printEvents(w io.Writer, events <-chan playback.Event, failed chan<- playback.Event) {
	for e := range events {
		line := fmt.Sprintf("%s %-20s", e.Time.Format(time.TimeOnly), e.Type)
		if e.Health != "" {
			line += " health=" + string(e.Health)
		}
		if e.Candidate != nil {
			line += " source=" + string(e.Candidate.Kind)
		}
		if e.Message != "" {
			line += " " + e.Message
		}
		fmt.Fprintln(w, line)

		if e.Health.EventType() != "" {
			select {
			case failed <- e:
			default:
			}
		}
	}
}
