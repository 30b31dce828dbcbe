package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type messageWriter interface {
	WriteMessages(c context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes asynchronously; delivery failures only reach the
// completion log, never the caller.
func NewKafkaPublisher(c context.Context, brokers []string, topic string) *KafkaPublisher {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "KafkaPublisher Completion").
		Logger()

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Async:                  true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Error().Err(err).Int(log.KeyMessages, len(messages)).Msgf("failed publishing cart events with error=%s", err.Error())
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(c context.Context, event Event) error {
	c, span := otel.Tracer.Start(c, "KafkaPublisher Publish")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "KafkaPublisher Publish").
		Str(log.KeyEventType, string(event.Type)).
		Str(log.KeyCartID, event.CartID.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "marshalling event").Logger()
	value, err := json.Marshal(event)
	if err != nil {
		err = fmt.Errorf("failed marshalling event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "publishing event").Logger()
	logger.Trace().Msg("publishing event")
	err = p.writer.WriteMessages(c, kafka.Message{
		Key:   []byte(event.CartID.String()),
		Value: value,
		Time:  event.OccurredAt,
	})
	if err != nil {
		err = fmt.Errorf("failed publishing event with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("published event")

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
