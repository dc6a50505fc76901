package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var (
	ErrPermament = errors.New("permanent messaging error")
	MaxMsgSize   = 1024 * 1024
	StreamMaxAge = 2 * 24 * time.Hour
)

type MessageQueue interface {
	Enqueue(topic string, message []byte, options *EnqueueOptions) error
	// handler shouldn't be a blocking call as it would trigger redelivery
	// of the message if the ack wait passes.
	Dequeue(topic string, handler func(message []byte) error) error
	Close()
}

type EnqueueOptions struct {
	IdempotententKey string
}

type msgQueue struct {
	consumerName    string
	js              jetstream.JetStream
	consumer        jetstream.Consumer
	consumerContext jetstream.ConsumeContext
}

type NATsMessageQueueManager struct {
	queueName string
	js        jetstream.JetStream
}

// NewNATsMessageQueueManager creates or updates the stream queueName over
// subjectWildCards.
func NewNATsMessageQueueManager(ctx context.Context, queueName string, subjectWildCards []string, nc *nats.Conn) (*NATsMessageQueueManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        queueName,
		Description: "Stream for " + queueName,
		Subjects:    subjectWildCards,
		MaxMsgSize:  int32(MaxMsgSize),
		Storage:     jetstream.FileStorage,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamMaxAge,
		Duplicates:  time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("create jetstream stream %s: %w", queueName, err)
	}
	logger.Info("JetStream stream ready", "stream", queueName, "subjects", subjectWildCards)

	return &NATsMessageQueueManager{
		queueName: queueName,
		js:        js,
	}, nil
}

// NewMessageQueue binds a durable consumer filtered to filterSubject. An
// empty consumerName gives a publish-only queue.
func (m *NATsMessageQueueManager) NewMessageQueue(ctx context.Context, consumerName, filterSubject string) (MessageQueue, error) {
	mq := &msgQueue{
		consumerName: consumerName,
		js:           m.js,
	}
	if consumerName == "" {
		return mq, nil
	}

	cfg := jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		MaxAckPending: 4,
		FilterSubject: filterSubject,
		MaxDeliver:    3,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	logger.Info("Creating consumer for subject", "name", cfg.Name, "filterSubject", cfg.FilterSubject)
	consumer, err := m.js.CreateOrUpdateConsumer(ctx, m.queueName, cfg)
	if err != nil {
		return nil, fmt.Errorf("create jetstream consumer %s: %w", consumerName, err)
	}
	mq.consumer = consumer
	return mq, nil
}

func (mq *msgQueue) Enqueue(topic string, message []byte, options *EnqueueOptions) error {
	logger.Debug("Enqueueing message", "topic", topic, "size", len(message))
	header := nats.Header{}
	if options != nil && options.IdempotententKey != "" {
		header.Add(nats.MsgIdHdr, options.IdempotententKey)
	}

	_, err := mq.js.PublishMsg(context.Background(), &nats.Msg{
		Subject: topic,
		Data:    message,
		Header:  header,
	})
	if err != nil {
		return fmt.Errorf("error enqueueing message: %w", err)
	}
	return nil
}

func (mq *msgQueue) Dequeue(topic string, handler func(message []byte) error) error {
	if mq.consumer == nil {
		return errors.New("message queue has no consumer")
	}
	logger.Info("Dequeuing messages", "topic", topic, "consumer", mq.consumerName)
	c, err := mq.consumer.Consume(func(msg jetstream.Msg) {
		err := handler(msg.Data())
		if err != nil {
			if errors.Is(err, ErrPermament) {
				logger.Warn("Permanent error on message", "subject", msg.Subject(), "error", err)
				_ = msg.Term()
				return
			}
			logger.Error("error handling message", "subject", msg.Subject(), "error", err)
			_ = msg.Nak()
			return
		}
		if err := msg.Ack(); err != nil {
			logger.Error("Error acknowledging message", "error", err)
		}
	})
	mq.consumerContext = c
	return err
}

func (mq *msgQueue) Close() {
	if mq.consumerContext != nil {
		mq.consumerContext.Stop()
	}
}
