// The agent is a headless classroom participant: it joins a live session
// over the same channel the browser uses, announces itself in chat, and
// mirrors its media toggles. Useful for smoke-testing a hub and for
// populating a classroom during development.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/helegran/liveclass/internal/client"
	"github.com/helegran/liveclass/internal/client/room"
	"github.com/helegran/liveclass/internal/config"
	"github.com/helegran/liveclass/internal/domain"
	"github.com/helegran/liveclass/internal/media"
)

// logNotifier prints toast-style notices to the log.
type logNotifier struct{}

func (logNotifier) Notify(title, message string) {
	log.Info().Str("module", "agent").Str("title", title).Msg(message)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	name := pflag.String("name", "agent", "display name for this participant")
	sessionID := pflag.String("session", "demo", "live session id to join")
	url := pflag.String("url", cfg.Client.ServerURL, "websocket endpoint")
	greeting := pflag.String("greeting", "", "chat message to send after joining")
	pflag.Parse()

	self, err := domain.NewUser(*name)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid display name")
	}

	stream := media.NewStream()
	dev := &media.StaticDevice{}
	if track, err := dev.AcquireMicrophone(ctx); err != nil {
		log.Warn().Err(err).Msg("microphone unavailable, continuing without audio")
	} else {
		stream.Attach(track)
	}

	ch := client.New(client.Options{
		URL:               *url,
		ReconnectDisabled: !cfg.Client.ReconnectEnabled,
		MaxAttempts:       cfg.Client.ReconnectMaxAttempts,
		Interval:          cfg.Client.ReconnectInterval,
	})

	ctrl := room.NewController(*self, domain.SessionID(*sessionID), ch, logNotifier{}, stream)
	ch.OnMessage(ctrl.HandleMessage)

	if err := ch.Connect(ctx); err != nil {
		log.Warn().Err(err).Msg("initial dial failed, reconnect policy takes over")
	}

	// Give the dial (or first reconnect) a moment before joining.
	waitUntil(ctx, ch.IsConnected, 10*time.Second)
	if ctrl.Join() {
		log.Info().Str("session", *sessionID).Msg("join announced")
	}
	if *greeting != "" {
		ctrl.SendChat(*greeting)
	}

	<-ctx.Done()
	ctrl.Leave()
	ch.Disconnect()
	log.Info().Msg("agent exited")
}

func waitUntil(ctx context.Context, cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() || ctx.Err() != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
