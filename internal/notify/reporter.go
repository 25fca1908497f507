// Package notify publishes run summaries to Kafka so downstream
// monitoring can track conversion and transfer outcomes without
// scraping logs.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/aeroecology/vpts-etl/internal/batch"
	"github.com/aeroecology/vpts-etl/internal/config"
)

// RunReport summarizes one command invocation.
type RunReport struct {
	Command     string        `json:"command"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Processed   int           `json:"processed"`
	Succeeded   int           `json:"succeeded"`
	RowsWritten int           `json:"rows_written"`
	Output      string        `json:"output,omitempty"`
	Failures    []FailureNote `json:"failures,omitempty"`
}

// FailureNote is the wire form of one per-file failure.
type FailureNote struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Notes converts batch failures into their wire form.
func Notes(failures []batch.FileFailure) []FailureNote {
	if len(failures) == 0 {
		return nil
	}
	notes := make([]FailureNote, len(failures))
	for i, f := range failures {
		notes[i] = FailureNote{Path: f.Path, Kind: string(f.Kind), Error: f.Err.Error()}
	}
	return notes
}

// Reporter produces run reports to a Kafka topic.
type Reporter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewReporter creates a Kafka producer for the configured report topic.
func NewReporter(cfg *config.Config, logger *slog.Logger) *Reporter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Reporter{writer: w, logger: logger}
}

// Publish serializes and produces one run report.
func (r *Reporter) Publish(ctx context.Context, report RunReport) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, msg)
}

func (r *Reporter) Close() error {
	return r.writer.Close()
}

// serializeReport marshals a RunReport into a Kafka message keyed by command.
func serializeReport(report RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Command),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "command", Value: []byte(report.Command)},
			{Key: "finished_at", Value: []byte(report.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
