package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hosp-data-etl/internal/config"
	"github.com/couchcryptid/hosp-data-etl/internal/domain"
)

// Writer produces reconstructed batches to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishBatch serializes every row of a reconstructed batch and publishes
// them to the sink topic in a single WriteMessages call. Messages are keyed
// by location so consumers see each location's rows in order.
func (w *Writer) PublishBatch(ctx context.Context, batch domain.ResultBatch) error {
	if len(batch.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Rows))
	for i := range batch.Rows {
		msg, err := serializeToMessage(batch, batch.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// resultMessage is the wire form of one result row. Incidence and cumulative
// are null when the underlying value is missing.
type resultMessage struct {
	Location           string `json:"location"`
	Date               string `json:"date"`
	Incidence          *int64 `json:"incidence"`
	Cumulative         *int64 `json:"cumulative"`
	IssueDate          string `json:"issue_date"`
	TemporalResolution string `json:"temporal_resolution"`
}

// serializeToMessage marshals a result row into a Kafka message.
func serializeToMessage(batch domain.ResultBatch, row domain.ResultRow) (kafkago.Message, error) {
	payload := resultMessage{
		Location:           row.Location,
		Date:               domain.FormatDate(row.Date),
		Incidence:          row.Inc,
		Cumulative:         row.Cum,
		IssueDate:          domain.FormatDate(batch.IssueDate),
		TemporalResolution: batch.TemporalResolution,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(row.Location),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "issue_date", Value: []byte(domain.FormatDate(batch.IssueDate))},
			{Key: "temporal_resolution", Value: []byte(batch.TemporalResolution)},
			{Key: "generated_at", Value: []byte(batch.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
