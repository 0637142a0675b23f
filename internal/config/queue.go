package config

import (
	"errors"
	"fmt"
)

// QueueConfig configures the RabbitMQ publisher for confirmed-action events.
// The whole section is optional.
type QueueConfig struct {
	Url           string `mapstructure:"url"`
	QueueUser     string `mapstructure:"user"`
	QueuePassword string `mapstructure:"password"`
	Exchange      string `mapstructure:"exchange"`
}

// AmqpURI assembles the broker URI. Url carries host:port only; credentials
// stay in their own fields so they can come from the environment.
func (cfg *QueueConfig) AmqpURI() string {
	if cfg.QueueUser == "" {
		return fmt.Sprintf("amqp://%s", cfg.Url)
	}
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.QueueUser, cfg.QueuePassword, cfg.Url)
}

func (cfg *QueueConfig) Validate() error {
	if cfg.Url == "" {
		return errors.New("queue url is required")
	}
	if cfg.Exchange == "" {
		return errors.New("queue exchange is required")
	}
	return nil
}
