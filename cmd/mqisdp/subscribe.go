package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gonzalop/mqisdp"
	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "sub",
	Short: "Subscribe to a topic filter and print incoming messages",
	Args: func(cmd *cobra.Command, args []string) error {
		if qos < 0 || qos > 2 {
			return fmt.Errorf("--qos must be between 0 and 2, got %d", qos)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []mq.Option{
			mq.WithKeepAlive(time.Duration(keepAlive) * time.Second),
			mq.WithReconnectPeriod(5 * time.Second),
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

		session.OnReconnect(func() {
			if err := session.Resubscribe(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "mqisdp: resubscribe after reconnect:", err)
			}
		})

		granted, err := session.Subscribe(ctx, topic, mq.QoS(qos), func(msg *mq.Message) {
			fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		fmt.Fprintf(os.Stderr, "mqisdp: subscribed to %q at QoS %d\n", topic, granted)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		<-sigCh
		return nil
	},
}

func init() {
	flags := subscribeCmd.Flags()
	flags.StringVarP(&topic, "topic", "t", "test", "topic filter to subscribe to")
	flags.IntVarP(&qos, "qos", "q", 0, "QoS level 0-2")
}
