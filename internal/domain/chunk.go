package domain

import (
	"context"
	"fmt"
	"time"
)

// RawChunk is one CSV document received from a streaming source. Each chunk
// carries its own header row and parses independently.
type RawChunk struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Source names the chunk for load bookkeeping, e.g. "asset-csv-chunks/0@42".
func (c RawChunk) Source() string {
	return fmt.Sprintf("%s/%d@%d", c.Topic, c.Partition, c.Offset)
}
