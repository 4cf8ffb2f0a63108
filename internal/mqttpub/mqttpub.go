// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package mqttpub publishes speed readings to an MQTT broker, e.g. for home automation.
package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/wneessen/waybar-speed/internal/config"
	"github.com/wneessen/waybar-speed/internal/logger"
	"github.com/wneessen/waybar-speed/internal/reading"
)

const (
	clientIDPrefix    = "waybar-speed-"
	connectTimeout    = time.Second * 10
	connectWait       = time.Second * 2
	publishTimeout    = time.Second * 5
	disconnectQuiesce = 250
	queueSize         = 16
)

var (
	ErrNotConnected   = errors.New("not connected to MQTT broker")
	ErrPublishTimeout = errors.New("timed out publishing to MQTT broker")
)

// Publisher sends every reading as JSON document to a single topic.
type Publisher struct {
	client mqtt.Client
	broker string
	topic  string
	qos    byte
	retain bool
	logger *logger.Logger
	queue  chan reading.Reading
}

// New prepares a publisher from the MQTT section of the config. Connect must be called before
// readings can be published. Without a configured client ID a random one is generated.
func New(log *logger.Logger, conf *config.Config) *Publisher {
	clientID := conf.MQTT.ClientID
	if clientID == "" {
		clientID = clientIDPrefix + uuid.NewString()
	}

	pub := &Publisher{
		broker: conf.MQTT.Broker,
		topic:  conf.MQTT.Topic,
		qos:    byte(conf.MQTT.QoS),
		retain: conf.MQTT.Retain,
		logger: log,
		queue:  make(chan reading.Reading, queueSize),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(conf.MQTT.Broker).
		SetClientID(clientID).
		SetUsername(conf.MQTT.Username).
		SetPassword(conf.MQTT.Password).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected to MQTT broker", slog.String("broker", conf.MQTT.Broker),
			slog.String("client_id", clientID))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("lost connection to MQTT broker", slog.String("broker", conf.MQTT.Broker), logger.Err(err))
	})
	pub.client = mqtt.NewClient(opts)

	return pub
}

// Connect starts connecting to the broker. If the broker is not reachable within a short wait,
// the client keeps retrying in the background and Connect returns without error.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(connectWait) {
		p.logger.Warn("MQTT broker not reachable yet, retrying in background", slog.String("broker", p.broker))
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Enqueue hands the reading to the publishing goroutine started by Run. It never blocks; if the
// queue is full the reading is dropped.
func (p *Publisher) Enqueue(r reading.Reading) bool {
	select {
	case p.queue <- r:
		return true
	default:
		p.logger.Debug("MQTT publish queue full, dropping reading")
		return false
	}
}

// Run publishes queued readings until the context is canceled.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-p.queue:
			if err := p.Publish(r); err != nil {
				p.logger.Warn("failed to publish reading to MQTT broker", logger.Err(err))
			}
		}
	}
}

// Publish sends the reading to the configured topic.
func (p *Publisher) Publish(r reading.Reading) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	token := p.client.Publish(p.topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	if err = token.Error(); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.client.IsConnectionOpen() {
		p.client.Disconnect(disconnectQuiesce)
	}
}
