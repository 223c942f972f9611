package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"orbitus-api/internal/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()
	event := Event{
		Type:       "lesson.registered",
		Key:        "student-1",
		OccurredAt: time.Date(2025, 2, 9, 14, 0, 0, 0, time.UTC),
		Payload:    map[string]int{"xpEarned": 18},
	}

	t.Run("SendsJSONEnvelope", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != "orbitus.events" {
				return errors.New("unexpected topic " + msg.Topic)
			}
			key, _ := msg.Key.Encode()
			if string(key) != "student-1" {
				return errors.New("unexpected key " + string(key))
			}
			return nil
		})

		p := newKafkaPublisher(producer, "orbitus.events", logger.Discard())
		require.NoError(t, p.Publish(ctx, event))
		require.NoError(t, p.Close())
	})

	t.Run("PayloadIsReadable", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var got Event
			if err := json.Unmarshal(val, &got); err != nil {
				return err
			}
			if got.Type != "lesson.registered" {
				return errors.New("unexpected type " + got.Type)
			}
			return nil
		})

		p := newKafkaPublisher(producer, "orbitus.events", logger.Discard())
		require.NoError(t, p.Publish(ctx, event))
		require.NoError(t, p.Close())
	})

	t.Run("BrokerFailure", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

		p := newKafkaPublisher(producer, "orbitus.events", logger.Discard())
		err := p.Publish(ctx, event)
		assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
		require.NoError(t, p.Close())
	})
}
