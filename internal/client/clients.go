package client

import (
	"context"

	"github.com/kvanc/server/internal/dto"
	"github.com/sirupsen/logrus"
)

// ResultClient is a message bus that result snapshots are pushed to
type ResultClient interface {
	Name() string
	PublishMessage(ctx context.Context, message []byte) error
	Close() error
}

type Clients interface {
	ResultClients() []ResultClient
	Close()
}

type clients struct {
	resultClients []ResultClient
}

func (c clients) ResultClients() []ResultClient {
	return c.resultClients
}

func (c clients) Close() {
	for _, resultClient := range c.resultClients {
		if err := resultClient.Close(); err != nil {
			logrus.Errorf("Error closing %s client: %v", resultClient.Name(), err)
		}
	}
}

// NewClients connects every configured message bus. A bus that cannot be
// reached is skipped so the voting session still runs without it.
func NewClients(cfg dto.Config) Clients {
	var resultClients []ResultClient

	if cfg.RabbitMQURL != "" {
		resultClients = appendClient(resultClients, "RabbitMQ", func() (ResultClient, error) { return NewRabbitMQClient(cfg) })
	}
	if len(cfg.KafkaBrokers) > 0 {
		resultClients = appendClient(resultClients, "Kafka", func() (ResultClient, error) { return NewKafkaClient(cfg) })
	}
	if cfg.MQTTBrokerURL != "" {
		resultClients = appendClient(resultClients, "MQTT", func() (ResultClient, error) { return NewMQTTClient(cfg) })
	}

	return &clients{
		resultClients: resultClients,
	}
}

func appendClient(resultClients []ResultClient, name string, connect func() (ResultClient, error)) []ResultClient {
	resultClient, err := connect()
	if err != nil {
		logrus.Errorf("Failed to connect to %s, results will not be published there: %v", name, err)
		return resultClients
	}
	logrus.Infof("Publishing results to %s", name)
	return append(resultClients, resultClient)
}

// NewStaticClients wraps already connected result clients.
func NewStaticClients(resultClients ...ResultClient) Clients {
	return &clients{
		resultClients: resultClients,
	}
}
