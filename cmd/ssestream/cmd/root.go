package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// shutdownTimeout bounds how long in-flight streams get to finish on exit.
const shutdownTimeout = 10 * time.Second

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ssestream",
	Short: "Serve event streams that demonstrate failure delivery",
	Long: `Serves a set of event-stream endpoints. Routes under /issue/ use the naive
engine and show how a mid-stream failure can leave a client hanging or
silently truncated; routes under /fixed/ deliver the same failures as a
terminal error event followed by a clean close.
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, cancelApp := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancelApp()

		cfg, err := configFromViper()
		if err != nil {
			return err
		}

		router, err := NewDemoRouter(appCtx, cfg, log.StandardLogger())
		if err != nil {
			return fmt.Errorf("could not build router: %w", err)
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%v", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			// Request contexts end with the process so that held streams are released.
			BaseContext: func(net.Listener) context.Context { return appCtx },
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{
				"port":   cfg.Port,
				"format": cfg.Format,
				"routes": len(router.Routes()),
			}).Info("Serving event streams")
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server failed: %w", err)
			}
		case <-appCtx.Done():
			log.Info("Shutdown signal received, draining streams")
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Streams did not drain before the shutdown deadline")
		}
		log.Info("Stopped")
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	var logLevel string
	var logFormat string

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Set the log level. Valid values: panic, fatal, error, warn, info, debug, trace")
	cobra.CheckErr(viper.BindEnv("log", "SSESTREAM_LOG", "LOG"))
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format: text or json")

	rootCmd.PersistentFlags().Int("port", 8080, "the port to listen on")
	cobra.CheckErr(viper.BindEnv("port", "SSESTREAM_PORT", "PORT"))
	rootCmd.PersistentFlags().String("format", "text", "Payload format of data events: text or json")
	rootCmd.PersistentFlags().String("sqs-queue-url", "", "If specified, serves the queue's messages on /queue")
	cobra.CheckErr(viper.BindEnv("sqs-queue-url", "SSESTREAM_SQS_QUEUE_URL", "SQS_QUEUE_URL"))
	rootCmd.PersistentFlags().Int32("sqs-wait-time", 2, "Long-poll wait in seconds for each queue receive")

	err := viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("Could not bind flags to viper")
	}

	// Run this before we do anything to set up the loglevel
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if lvl, err := log.ParseLevel(viper.GetString("log")); err == nil {
			log.SetLevel(lvl)
		} else {
			log.SetLevel(log.InfoLevel)
			log.WithFields(log.Fields{
				"error": err,
			}).Error("Could not parse log level")
		}
		if viper.GetString("log-format") == "json" {
			log.SetFormatter(&log.JSONFormatter{})
		}

		cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			if f.DefValue != "" || f.Changed {
				if err := viper.BindPFlag(f.Name, f); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Fatal("Could not bind flag to viper")
				}
			}
		})
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	replacer := strings.NewReplacer("-", "_")

	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix("SSESTREAM")
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using config file: %v", viper.ConfigFileUsed())
	} else {
		log.WithError(err).Warn("Could not read config file")
	}
}
