package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coffeecoin/pkg/models"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// DefaultTopic 账本事件默认topic
const DefaultTopic = "coffeecoin_ledger_events"

// KafkaSink Kafka输出器
type KafkaSink struct {
	logger   *logrus.Logger
	topic    string
	producer sarama.SyncProducer
}

// NewProducerConfig 同步生产者配置
func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	config.Version = sarama.V2_8_0_0
	return config
}

// NewKafkaSink 创建Kafka输出器
func NewKafkaSink(brokers []string, topic string, logger *logrus.Logger) (*KafkaSink, error) {
	logger.Infof("初始化Kafka输出器，brokers: %v, topic: %s", brokers, topic)

	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("创建Kafka生产者失败: %w", err)
	}

	logger.Info("Kafka生产者已创建")
	return NewKafkaSinkWithProducer(producer, topic, logger), nil
}

// NewKafkaSinkWithProducer 使用已有生产者创建输出器
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{
		logger:   logger,
		topic:    topic,
		producer: producer,
	}
}

// WriteEvent 以地址为key发送事件，同一地址的事件落在同一分区
func (k *KafkaSink) WriteEvent(event *models.LedgerEvent) error {
	if event == nil {
		return nil
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strings.ToLower(event.Address)),
		Value: sarama.ByteEncoder(jsonData),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("发送事件到Kafka失败: %w", err)
	}

	k.logger.Debugf("事件已发送到Kafka topic '%s' (partition: %d, offset: %d): %s %s",
		k.topic, partition, offset, event.Type, event.ID)
	return nil
}

// Close 关闭Kafka连接
func (k *KafkaSink) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
