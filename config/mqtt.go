package config

import (
	"fmt"

	"github.com/kilianp07/vpp/core/model"
	"github.com/kilianp07/vpp/infra/mqtt"
)

// MQTTConfig enables publication of the best schedule.
type MQTTConfig struct {
	Enabled           bool `json:"enabled"`
	AckTimeoutSeconds int  `json:"ack_timeout_seconds" validate:"gte=0"`
	mqtt.Config       `json:",squash"`
}

func (c *MQTTConfig) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "vpp-optimizer"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "vpp"
	}
}

func (c MQTTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("%w: broker is required when enabled", model.ErrConfig)
	}
	if c.AckTimeoutSeconds < 0 {
		return fmt.Errorf("%w: ack_timeout_seconds must not be negative", model.ErrConfig)
	}
	return nil
}
