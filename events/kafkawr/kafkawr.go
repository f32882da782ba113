// Package kafkawr provides a Kafka-backed watermill publisher built on a
// sarama sync producer, for wiring upload audit events into an external
// event stream.
package kafkawr

import (
	"strings"
	"sync"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/code19m/errx"
)

// Config holds connection settings for the Kafka publisher.
type Config struct {
	Brokers      string `yaml:"brokers"       validate:"required"`
	SaslUsername string `yaml:"sasl_username"`
	SaslPassword string `yaml:"sasl_password"                     mask:"true"`

	ClientID     string `yaml:"client_id"     default:"fileguard"`
	KafkaVersion string `yaml:"kafka_version" default:"3.6.0"`
}

func (c Config) getSaramaConfig() (*sarama.Config, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = c.ClientID

	version, err := sarama.ParseKafkaVersion(c.KafkaVersion)
	if err != nil {
		return nil, errx.Wrap(err)
	}
	saramaCfg.Version = version

	// Currently support only SASL_PLAINTEXT authentication.
	if c.SaslUsername != "" && c.SaslPassword != "" {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.User = c.SaslUsername
		saramaCfg.Net.SASL.Password = c.SaslPassword
		saramaCfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	}

	// Sync producer requires both return channels.
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true

	return saramaCfg, nil
}

// Publisher implements watermill's message.Publisher over a sarama sync
// producer. Message metadata travels as Kafka record headers; the watermill
// message UUID becomes the partition key so retries of one event land on
// the same partition.
type Publisher struct {
	producer sarama.SyncProducer

	closeOnce sync.Once
	closeErr  error
}

// New connects to the brokers and returns a ready publisher.
func New(cfg Config) (*Publisher, error) {
	saramaCfg, err := cfg.getSaramaConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	producer, err := sarama.NewSyncProducer(strings.Split(cfg.Brokers, ","), saramaCfg)
	if err != nil {
		return nil, errx.Wrap(err)
	}

	return &Publisher{producer: producer}, nil
}

// Publish sends all messages to topic, stopping at the first failure.
func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		kafkaMsg := &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(msg.UUID),
			Value: sarama.ByteEncoder(msg.Payload),
		}
		for k, v := range msg.Metadata {
			kafkaMsg.Headers = append(kafkaMsg.Headers, sarama.RecordHeader{
				Key:   []byte(k),
				Value: []byte(v),
			})
		}

		partition, offset, err := p.producer.SendMessage(kafkaMsg)
		if err != nil {
			return errx.Wrap(err, errx.WithDetails(errx.D{
				"topic":     topic,
				"partition": partition,
				"offset":    offset,
			}))
		}
	}
	return nil
}

// Close closes the underlying producer. Safe to call more than once.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.producer.Close()
	})
	return errx.Wrap(p.closeErr)
}
