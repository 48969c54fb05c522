package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"halya/internal/amqp"
	"halya/internal/log"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print diagnostic events published by running servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AMQPURL == "" {
				return fmt.Errorf("watch: AMQP_URL is not configured")
			}
			ctx, stop := ShutdownContext(cmd.Context())
			defer stop()

			logger := a.logger.WithComponent(log.ComponentWatch)
			client, err := amqp.NewClient(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeEvents(ctx, func(_ context.Context, msg *amqp.EventMessage) error {
				printEvent(out, msg)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func printEvent(w io.Writer, m *amqp.EventMessage) {
	line := fmt.Sprintf("%s %-16s session=%s", m.Timestamp.Format(time.RFC3339), m.Kind, m.SessionID)
	if m.Operation != "" {
		line += " op=" + m.Operation
	}
	if m.Alley != "" {
		line += " alley=" + m.Alley
	}
	if m.ResidentID != "" {
		line += " resident=" + m.ResidentID
	}
	if m.Count > 0 {
		line += fmt.Sprintf(" count=%d", m.Count)
	}
	if m.Error != "" {
		line += fmt.Sprintf(" error=%q", m.Error)
	}
	fmt.Fprintln(w, line)
}
