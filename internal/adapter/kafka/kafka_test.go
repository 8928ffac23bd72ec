package kafka

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawChunk(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("assets-2030"),
		Value:     []byte("Asset Name,Lat,Long,Business Category,Risk Rating,Risk Factors,Year\n"),
		Topic:     "asset-csv-chunks",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "content_type", Value: []byte("text/csv")},
		},
	}

	chunk := mapMessageToRawChunk(msg)

	assert.Equal(t, []byte("assets-2030"), chunk.Key)
	assert.Equal(t, msg.Value, chunk.Value)
	assert.Equal(t, "asset-csv-chunks", chunk.Topic)
	assert.Equal(t, 2, chunk.Partition)
	assert.Equal(t, int64(42), chunk.Offset)
	assert.Equal(t, now, chunk.Timestamp)
	assert.Equal(t, "text/csv", chunk.Headers["content_type"])
	assert.Equal(t, "asset-csv-chunks/2@42", chunk.Source())
	assert.Nil(t, chunk.Commit)
}

func TestSerializeRecord(t *testing.T) {
	loadedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	record := domain.AssetRecord{
		AssetName:        "Ball PLC",
		Latitude:         44.4,
		Longitude:        math.NaN(),
		BusinessCategory: "Energy",
		RiskRating:       2.5,
		RiskFactors:      map[string]float64{domain.FactorDrought: 0.4},
		Year:             2030,
	}

	msg, err := serializeRecord(record, "sample_data.csv", loadedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("Ball PLC"), msg.Key)
	assert.Contains(t, string(msg.Value), `"businessCategory":"Energy"`)
	assert.Contains(t, string(msg.Value), `"long":null`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("sample_data.csv"), msg.Headers[0].Value)
	assert.Equal(t, []byte("2030"), msg.Headers[1].Value)
	assert.Equal(t, []byte(loadedAt.Format(time.RFC3339)), msg.Headers[2].Value)
}
