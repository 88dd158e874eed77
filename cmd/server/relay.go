package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run only the audit outbox relay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		relay := a.relay()
		if relay == nil {
			return errors.New("relay needs kafka brokers (NOTARIA_KAFKA_BROKERS)")
		}
		a.logger.InfoContext(ctx, "starting audit relay", "topic", a.cfg.Kafka.EventTopic)
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
