// murmur-pipe connects to the server's duplex endpoint, polls for incoming
// requests and acknowledges each one. It is the smallest useful consumer of
// the session layer; real clients decrypt the request bodies instead of
// just acking them.
package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/murmurchat/transport/internal/config"
	"github.com/murmurchat/transport/internal/logging"
	"github.com/murmurchat/transport/internal/session"
	"github.com/murmurchat/transport/internal/transport"
	"github.com/murmurchat/transport/pkg/wire"
)

const pollTimeout = 10 * time.Second

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "murmur-pipe",
	Short:         "Maintain the duplex session and acknowledge incoming requests",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.ConfigureRuntime()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "client.toml", "path to the client configuration file")
}

func run(cfg config.Config) error {
	tlsConfig, err := transport.TrustConfig(cfg.TrustBundle)
	if err != nil {
		return err
	}

	factory := transport.NewWebSocketFactory(
		cfg.BaseURI,
		transport.StaticCredentials{User: cfg.Login, Pass: cfg.Password},
		tlsConfig,
		cfg.ConnectTimeout(),
		cfg.ReadTimeout(),
	)

	sess := session.New(session.Config{
		Factory:           factory,
		KeepaliveInterval: cfg.KeepaliveInterval(),
	})
	sess.Connect()
	defer sess.Disconnect()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Stringer("signal", sig).Msg("shutting down")
		sess.Disconnect()
	}()

	log.Info().Str("server", cfg.BaseURI).Msg("session started")

	for {
		req, err := sess.ReadRequest(pollTimeout, nil)
		switch {
		case errors.Is(err, session.ErrTimeout):
			continue
		case errors.Is(err, session.ErrConnectionClosed):
			log.Info().Msg("session closed")
			return nil
		case err != nil:
			return err
		}

		log.Info().
			Uint64("id", req.ID).
			Str("verb", req.Verb).
			Str("path", req.Path).
			Int("body_bytes", len(req.Body)).
			Msg("request received")

		resp := &wire.ResponseMessage{ID: req.ID, Status: 200, Message: "OK"}
		if err := sess.SendResponse(resp); err != nil {
			if errors.Is(err, session.ErrConnectionClosed) {
				return nil
			}
			log.Warn().Err(err).Uint64("id", req.ID).Msg("failed to acknowledge request")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("murmur-pipe failed")
		os.Exit(1)
	}
}
