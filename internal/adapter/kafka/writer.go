// Package kafka publishes consolidated load profiles to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/county-loads/internal/observability"
	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// LoadRow is one published timestep of a sector's consolidated load profile.
type LoadRow struct {
	State     string             `json:"state"`
	County    string             `json:"county"`
	Sector    string             `json:"sector"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
	Degraded  bool               `json:"degraded"`
}

// Writer produces load rows to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishTable serializes every row of a consolidated table and publishes the
// batch in a single WriteMessages call.
func (w *Writer) PublishTable(ctx context.Context, state, county, sector string,
	table *timeseries.Table, degraded bool) error {
	cols := table.Columns()
	index := table.Index()
	msgs := make([]kafkago.Message, len(index))
	for i, ts := range index {
		values := make(map[string]float64, len(cols))
		for _, name := range cols {
			v, _ := table.Column(name)
			values[name] = v[i]
		}
		msg, err := serializeToMessage(LoadRow{
			State:     state,
			County:    county,
			Sector:    sector,
			Timestamp: ts,
			Values:    values,
			Degraded:  degraded,
		})
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.metrics.RowsPublished.Add(float64(len(msgs)))
	w.logger.Info("published load profile",
		"state", state, "county", county, "sector", sector, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a load row into a Kafka message keyed by the
// row's identity.
func serializeToMessage(row LoadRow) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize load row: %w", err)
	}
	key := fmt.Sprintf("%s|%s|%s|%s", row.State, row.County, row.Sector,
		row.Timestamp.Format(time.RFC3339))
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "sector", Value: []byte(row.Sector)},
		},
	}, nil
}
