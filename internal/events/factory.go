package events

import (
	"log"
	"strings"

	"github.com/darkden-lab/portalhost/internal/config"
)

// NewBroker returns a KafkaBroker when KAFKA_BROKERS is set and an
// InMemoryBroker otherwise.
func NewBroker(cfg *config.Config) (MessageBroker, error) {
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		log.Printf("events: using KafkaBroker with brokers=%v group=%s", brokers, cfg.KafkaConsumerGroup)
		return NewKafkaBroker(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		})
	}

	log.Println("events: using InMemoryBroker (KAFKA_BROKERS not set)")
	return NewInMemoryBroker(), nil
}
