// Command mqisdp is a small CLI around the mq package: connect to a
// broker, publish one message, or subscribe and print incoming messages.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	broker    string
	clientID  string
	topic     string
	message   string
	qos       int
	retain    bool
	keepAlive int
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "mqisdp",
	Short: "A minimal MQTT 3.1 (MQIsdp) client",
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&broker, "broker", "b", "localhost:1883", "MQTT broker host:port")
	flags.StringVarP(&clientID, "client", "c", "", "MQTT client id (default: random)")
	flags.IntVarP(&keepAlive, "keep-alive", "k", 30, "keep-alive interval in seconds")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.BindPFlag("broker", flags.Lookup("broker"))
	viper.BindPFlag("client", flags.Lookup("client"))
	viper.BindPFlag("keep-alive", flags.Lookup("keep-alive"))
	viper.SetEnvPrefix("mqisdp")
	viper.AutomaticEnv()

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(subscribeCmd)
}

func initConfig() {
	viper.SetConfigName("mqisdp")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/mqisdp")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "mqisdp: reading config:", err)
		}
	}
	broker = viper.GetString("broker")
	clientID = viper.GetString("client")
	keepAlive = viper.GetInt("keep-alive")
}

func newLogger() *logrus.Logger {
	l := logrus.New()
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
