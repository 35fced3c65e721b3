package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Gopher0727/occult/config"
	"github.com/Gopher0727/occult/internal/model"
	"github.com/Gopher0727/occult/internal/pkg/kafka"
	"github.com/Gopher0727/occult/internal/utils"
	logger "github.com/Gopher0727/occult/middleware/log"
)

func TestEncodeDecode(t *testing.T) {
	ev := &Event{
		Type:      ReactionAdded,
		ServerID:  model.NewID(),
		ChannelID: model.NewID(),
		MessageID: model.NewID(),
		UserID:    model.NewID(),
		At:        time.Date(2025, 3, 1, 12, 0, 0, 5e6, time.UTC),
		Attrs:     map[string]any{"emoji": "👍"},
	}

	data, err := Encode(ev)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestEncodeOmitsZeroIDs(t *testing.T) {
	serverID := model.NewID()
	data, err := Encode(&Event{Type: MemberLeft, ServerID: serverID, At: time.Unix(0, 0)})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, got.ChannelID.IsNil())
	assert.Nil(t, got.Attrs)
	assert.Equal(t, serverID.Bytes(), got.Key())
}

func TestEncodeRejectsUnsupportedAttrs(t *testing.T) {
	_, err := Encode(&Event{Type: MessageCreated, Attrs: map[string]any{"bad": struct{}{}}})
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestDispatcherPublishesThroughKafka(t *testing.T) {
	channelID := model.NewID()
	sp := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != string(channelID.Bytes()) {
			return errors.New("event not keyed by channel")
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		ev, err := Decode(value)
		if err != nil {
			return err
		}
		if ev.Type != MessageCreated {
			return errors.New("unexpected event type")
		}
		return nil
	})

	producer := kafka.NewProducerFrom(sp, &config.KafkaConfig{Topic: "occult.events"})
	pool := utils.NewWorkerPool(1, 4, nil)
	pool.Start()

	d := NewDispatcher(producer, pool, logger.NewNop())
	d.Dispatch(context.Background(), &Event{Type: MessageCreated, ChannelID: channelID, At: time.Now()})

	pool.Stop()
	require.NoError(t, producer.Close())
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys [][]byte
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	return p.err
}

func TestDispatcherSurvivesPublishFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{err: errors.New("broker down")}
	pool := utils.NewWorkerPool(1, 4, nil)
	pool.Start()

	d := NewDispatcher(pub, pool, logger.FromZap(zap.New(core)))
	d.Dispatch(context.Background(), &Event{Type: MessageDeleted, At: time.Now()})
	pool.Stop()

	assert.Len(t, pub.keys, 1)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish event").Len())
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{}
	// not started, so the single slot stays occupied
	pool := utils.NewWorkerPool(1, 1, nil)

	d := NewDispatcher(pub, pool, logger.FromZap(zap.New(core)))
	d.Dispatch(context.Background(),
		&Event{Type: ReactionAdded, At: time.Now()},
		&Event{Type: ReactionRemoved, At: time.Now()},
	)

	assert.Equal(t, 1, logs.FilterMessage("event queue full, dropping event").Len())
	pool.Start()
	pool.Stop()
	assert.Len(t, pub.keys, 1)
}

func TestDispatcherIgnoresCallerCancellation(t *testing.T) {
	pub := &recordingPublisher{}
	pool := utils.NewWorkerPool(1, 4, nil)
	pool.Start()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(pub, pool, nil)
	d.Dispatch(ctx, &Event{Type: InviteRedeemed, At: time.Now()})
	cancel()
	pool.Stop()

	assert.Len(t, pub.keys, 1)
}
