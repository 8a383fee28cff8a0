package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hatsunemiku3939/ssestream"
)

// Config is the demo server configuration.
type Config struct {
	Port        int
	Format      string
	SQSQueueURL string
	SQSWaitTime int32
}

// PayloadFormat maps Format to an ssestream payload format.
func (c Config) PayloadFormat() (ssestream.PayloadFormat, error) {
	switch c.Format {
	case "", "text":
		return ssestream.TextFormat{}, nil
	case "json":
		return ssestream.JSONFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown payload format %q, expected text or json", c.Format)
	}
}

func configFromViper() (Config, error) {
	cfg := Config{
		Port:        viper.GetInt("port"),
		Format:      viper.GetString("format"),
		SQSQueueURL: viper.GetString("sqs-queue-url"),
		SQSWaitTime: viper.GetInt32("sqs-wait-time"),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if _, err := cfg.PayloadFormat(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
