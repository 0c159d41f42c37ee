//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/walk-comfort-service/internal/adapter/kafka"
	"github.com/couchcryptid/walk-comfort-service/internal/adapter/sqlite"
	"github.com/couchcryptid/walk-comfort-service/internal/config"
	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
	"github.com/couchcryptid/walk-comfort-service/internal/pipeline"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"
)

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Report  domain.ComfortReport
	Key     string
	Headers map[string]string
}

// observationCase is a published observation and the category it must produce.
type observationCase struct {
	payload  map[string]any
	category string
}

func observationCases() []observationCase {
	return []observationCase{
		{map[string]any{"station": "belfast-city", "temperature": 12, "wind_speed": 5, "humidity": 75, "cloud_cover": 50, "is_day": true, "observed_at": "2025-03-14T09:00:00Z"}, domain.NoThermalStress},
		{map[string]any{"station": "belfast-city", "temperature": 25, "wind_speed": 0, "humidity": 90, "cloud_cover": 0, "is_day": true, "observed_at": "2025-07-02T14:00:00Z"}, domain.ModerateHeatStress},
		{map[string]any{"station": "aldergrove", "temperature": -5, "wind_speed": 10, "humidity": 80, "cloud_cover": 100, "is_day": false, "observed_at": "2025-01-20T23:00:00Z"}, domain.ModerateColdStress},
		{map[string]any{"station": "aldergrove", "temperature": 36, "wind_speed": 1, "humidity": 60, "cloud_cover": 0, "is_day": true, "observed_at": "2025-07-19T15:00:00Z"}, domain.ExtremeHeatStress},
		{map[string]any{"station": "belfast-harbour", "temperature": -20, "wind_speed": 16, "humidity": 90, "cloud_cover": 100, "is_day": false, "observed_at": "2025-01-21T03:00:00Z"}, domain.StrongColdStress},
	}
}

func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-reader")

	payload, err := json.Marshal(observationCases()[0].payload)
	require.NoError(t, err)

	producer := newProducer(t, broker)
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("belfast-city"),
		Value: payload,
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for len(batch) == 0 {
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("belfast-city"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	transformer := pipeline.NewTransformer(observability.NewMetricsForTesting(), discardLogger())
	report, err := transformer.Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.ComfortReport{report}))

	msg := readSink(ctx, t, newSinkConsumer(t, broker))
	assert.Equal(t, report.ID, msg.Key)
	assert.Equal(t, domain.NoThermalStress, msg.Headers["stress_category"])
	_, err = time.Parse(time.RFC3339, msg.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")
	assert.InDelta(t, 9.5, msg.Report.Comfort.Value, 1e-9)
	assert.Equal(t, "belfast-city", msg.Report.Station)
}

// TestPipelineEndToEnd runs Reader → Transformer → FanOut(Writer, history)
// against a real broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-pipeline")
	cases := observationCases()

	msgs := make([]kafkago.Message, 0, len(cases))
	for i, c := range cases {
		payload, err := json.Marshal(c.payload)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{Key: []byte(fmt.Sprintf("obs-%d", i)), Value: payload})
	}
	require.NoError(t, newProducer(t, broker).WriteMessages(ctx, msgs...))

	history, err := sqlite.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = history.Close() })

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(metrics, discardLogger()),
		pipeline.NewFanOut(writer, history), discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	received := make(map[string]sinkMessage, len(cases))
	for len(received) < len(cases) {
		msg := readSink(ctx, t, consumer)
		received[msg.Report.Observation.ObservedAt.Format(time.RFC3339)] = msg
	}

	pipelineCancel()
	require.NoError(t, <-errCh)
	assert.True(t, p.Ready())

	for _, c := range cases {
		msg, ok := received[c.payload["observed_at"].(string)]
		require.True(t, ok, "missing report for %v", c.payload["observed_at"])
		assert.Equal(t, c.category, msg.Report.Comfort.StressCategory)
		assert.Equal(t, c.category, msg.Headers["stress_category"])
		assert.Equal(t, msg.Report.Observation.Comfort(), msg.Report.Comfort)
	}

	stored, err := history.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, stored, len(cases))
}

// TestPipelineTransformError verifies that invalid messages are skipped and
// the pipeline continues with valid ones.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-poison")

	validPayload, err := json.Marshal(observationCases()[0].payload)
	require.NoError(t, err)

	require.NoError(t, newProducer(t, broker).WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("calm"), Value: []byte(`{"temperature":10,"wind_speed":-1}`)},
		kafkago.Message{Key: []byte("good"), Value: validPayload},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(metrics, discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	msg := readSink(ctx, t, consumer)
	assert.Equal(t, "belfast-city", msg.Report.Station)

	// Verify no second message arrives (both poison pills were skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}

// --- helpers ---

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("walk-comfort-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchSize:          50,
		BatchFlushInterval: 5 * time.Second,
	}
}

func newProducer(t *testing.T, broker string) *kafkago.Writer {
	t.Helper()
	w := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testSourceTopic,
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// readSink reads a single message from the sink consumer and deserializes it.
func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var report domain.ComfortReport
	require.NoError(t, json.Unmarshal(msg.Value, &report), "unmarshal sink message")

	return sinkMessage{Report: report, Key: string(msg.Key), Headers: headers}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
