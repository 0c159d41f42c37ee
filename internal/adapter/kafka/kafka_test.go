package kafka

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("station-1"),
		Value:     []byte(`{"temperature":12,"wind_speed":5}`),
		Topic:     "raw-weather-observations",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("open-meteo")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("station-1"), raw.Key)
	assert.JSONEq(t, `{"temperature":12,"wind_speed":5}`, string(raw.Value))
	assert.Equal(t, "raw-weather-observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "open-meteo", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	obs := domain.FallbackObservation()
	report := domain.ComfortReport{
		ID:          "comfort-0123456789abcdef",
		Station:     "belfast",
		Observation: obs,
		Comfort:     obs.Comfort(),
		ProcessedAt: now,
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("comfort-0123456789abcdef"), msg.Key)
	assert.Contains(t, string(msg.Value), `"stress_category":"No Thermal Stress"`)
	assert.Contains(t, string(msg.Value), `"display_weight":"neutral"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "stress_category", msg.Headers[0].Key)
	assert.Equal(t, []byte("No Thermal Stress"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var decoded domain.ComfortReport
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 9.5, decoded.Comfort.Value)
}

func TestSerializeToMessage_NaNFails(t *testing.T) {
	report := domain.ComfortReport{ID: "comfort-nan", Comfort: domain.ComfortResult{Value: math.NaN()}}

	_, err := serializeToMessage(report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize comfort report")
}
