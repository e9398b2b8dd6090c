package client

import (
	"context"

	"github.com/Shopify/sarama"
	"github.com/kvanc/server/internal/dto"
)

type kafkaClient struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaClient(config dto.Config) (ResultClient, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.ClientID = "kvanc"
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	kafkaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(config.KafkaBrokers, kafkaConfig)
	if err != nil {
		return nil, err
	}

	return newKafkaClient(producer, config.KafkaTopic), nil
}

func newKafkaClient(producer sarama.SyncProducer, topic string) *kafkaClient {
	return &kafkaClient{
		producer: producer,
		topic:    topic,
	}
}

func (k *kafkaClient) Name() string {
	return "kafka"
}

// PublishMessage sends synchronously; sarama applies its own timeouts so ctx is only checked up front.
func (k *kafkaClient) PublishMessage(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(message),
	})
	return err
}

func (k *kafkaClient) Close() error {
	return k.producer.Close()
}
