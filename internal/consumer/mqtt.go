// Package consumer receives raw sensor readings from the MQTT broker and
// feeds them into the ingestion pipeline. Handler errors are logged and
// never tear down the subscription; a malformed reading from one sensor
// must not silence a household.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/snarayanan1095/Wellnest/internal/config"
	"github.com/snarayanan1095/Wellnest/internal/models"
)

// IngestFunc hands a raw reading to the core pipeline.
type IngestFunc func(ctx context.Context, raw models.RawReading) error

// MQTTConsumer subscribes to the sensor reading topic.
type MQTTConsumer struct {
	cfg    config.MQTTConfig
	client mqtt.Client
	ingest IngestFunc
	logger *zap.Logger
}

// NewMQTTConsumer connects to the broker.
func NewMQTTConsumer(cfg config.MQTTConfig, ingest IngestFunc, logger *zap.Logger) (*MQTTConsumer, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTConsumer{
		cfg:    cfg,
		client: client,
		ingest: ingest,
		logger: logger,
	}, nil
}

// Start subscribes to the configured topic and blocks until the context
// is cancelled.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if token := c.client.Subscribe(c.cfg.Topic, c.cfg.QoS, c.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.cfg.Topic, token.Error())
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.cfg.Topic),
		zap.String("broker", c.cfg.Broker),
	)

	<-ctx.Done()

	if token := c.client.Unsubscribe(c.cfg.Topic); token.Wait() && token.Error() != nil {
		c.logger.Warn("Failed to unsubscribe",
			zap.Error(token.Error()),
		)
	}
	c.client.Disconnect(250)
	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage decodes one reading and hands it to the pipeline.
func (c *MQTTConsumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw models.RawReading
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		c.logger.Warn("Dropping undecodable sensor payload",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
		return
	}

	if err := c.ingest(context.Background(), raw); err != nil {
		// Validation failures are expected for misbehaving sensors; log
		// and keep consuming.
		c.logger.Warn("Reading rejected",
			zap.String("topic", msg.Topic()),
			zap.String("sensor_id", raw.SensorID),
			zap.Error(err),
		)
	}
}
