package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gonzalop/mqisdp"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "pub",
	Short: "Publish a single message and exit",
	Args: func(cmd *cobra.Command, args []string) error {
		if qos < 0 || qos > 2 {
			return fmt.Errorf("--qos must be between 0 and 2, got %d", qos)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []mq.Option{
			mq.WithKeepAlive(time.Duration(keepAlive) * time.Second),
			mq.WithLogger(mq.NewLogrusLogger(newLogger())),
		}
		if clientID != "" {
			opts = append(opts, mq.WithClientID(clientID))
		}
		cfg := mq.NewConfig(mq.DialTCPTimeout(broker, 10*time.Second), opts...)

		ctx := context.Background()
		session, err := mq.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer session.Disconnect(ctx)

		if err := session.Publish(ctx, mq.QoS(qos), retain, topic, []byte(message)); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		return nil
	},
}

func init() {
	flags := publishCmd.Flags()
	flags.StringVarP(&topic, "topic", "t", "test", "topic to publish to")
	flags.StringVarP(&message, "message", "m", "", "message payload")
	flags.IntVarP(&qos, "qos", "q", 0, "QoS level 0-2")
	flags.BoolVarP(&retain, "retain", "r", false, "set the retain flag")
}
