// Package events carries workflow traffic over NATS: run requests consumed by
// a queue worker, and per-volume and per-run results published for anyone
// listening.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/nats-io/nats.go"
)

const (
	VolumeSuffix = "volume"
	ReportSuffix = "report"
)

// Publisher publishes workflow results to <Prefix>.volume and
// <Prefix>.report. Publishing is fire and forget; failures are logged.
type Publisher struct {
	Conn   *nats.Conn
	Prefix string
}

func NewPublisher(conn *nats.Conn, prefix string) *Publisher {
	return &Publisher{Conn: conn, Prefix: prefix}
}

func (p *Publisher) VolumeProcessed(ctx context.Context, res *workflow.VolumeResult) {
	p.publish(p.Prefix+"."+VolumeSuffix, res)
}

func (p *Publisher) RunCompleted(ctx context.Context, report *workflow.Report) {
	p.publish(p.Prefix+"."+ReportSuffix, report)
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal event", "subject", subject, "err", err)
		return
	}
	if err := p.Conn.Publish(subject, data); err != nil {
		slog.Error("Failed to publish event", "subject", subject, "err", err)
	}
}
