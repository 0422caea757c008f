// Command rationale-report reads the persisted cockpit snapshot and reports on it
// without running the server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rationale-report",
		Short: "Report on the saved loan rationale cockpit",
		Long: `rationale-report reads the cockpit snapshot saved by the server and prints the
review summary or the status of each approval rationale.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	flags.String("driver", "badger", "snapshot store driver (memory, badger, redis, sqlite)")
	flags.String("path", "data/badger", "badger directory or sqlite file")
	flags.String("redis-url", "", "redis URL for the redis driver")
	flags.String("key", service.DefaultSnapshotKey, "snapshot key")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("store.driver", flags.Lookup("driver"))
	_ = viper.BindPFlag("store.path", flags.Lookup("path"))
	_ = viper.BindPFlag("store.redis_url", flags.Lookup("redis-url"))
	_ = viper.BindPFlag("store.key", flags.Lookup("key"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(summaryCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(clearCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// COCKPIT_STORE_DRIVER, COCKPIT_STORE_PATH, ...
	viper.SetEnvPrefix("COCKPIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.Init(&logger.Config{Level: viper.GetString("log.level"), Format: "text"})
	slog.Debug("report configured", "driver", viper.GetString("store.driver"), "config", viper.ConfigFileUsed())
	return nil
}
