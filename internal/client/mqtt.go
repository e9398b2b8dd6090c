package client

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/kvanc/server/internal/dto"
)

const mqttConnectTimeout = 5 * time.Second

type mqttClient struct {
	client mqtt.Client
	topic  string
}

// NewMQTTClient publishes retained result snapshots so late subscribers get the latest tally.
func NewMQTTClient(config dto.Config) (ResultClient, error) {
	options := mqtt.NewClientOptions().
		AddBroker(config.MQTTBrokerURL).
		SetClientID("kvanc-" + uuid.NewString()).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	client := mqtt.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: mqtt connect timed out", dto.ErrInternalFailure)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}

	return &mqttClient{
		client: client,
		topic:  config.MQTTTopic,
	}, nil
}

func (m *mqttClient) Name() string {
	return "mqtt"
}

func (m *mqttClient) PublishMessage(ctx context.Context, message []byte) error {
	token := m.client.Publish(m.topic, 1, true, message)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *mqttClient) Close() error {
	m.client.Disconnect(250)
	return nil
}
