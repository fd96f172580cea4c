package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/mulgadc/ebsgrow/ebsgrow/awserrors"
	"github.com/mulgadc/ebsgrow/ebsgrow/gateway"
	"github.com/mulgadc/ebsgrow/ebsgrow/utils"
	"github.com/nats-io/nats.go"
)

// RunRequest is the body of a run request. A nil Inc selects the default
// increment.
type RunRequest struct {
	InstanceID string `json:"instance_id,omitempty"`
	VolumeID   string `json:"volume_id,omitempty"`
	Inc        *int   `json:"inc,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Invoker runs the workflow from raw request parameters
type Invoker interface {
	Invoke(ctx context.Context, requestID, instanceID, volumeID, inc string) gateway.Response
}

// Worker consumes run requests from a queue group so several workers share
// the load, each request handled by exactly one of them.
type Worker struct {
	Conn    *nats.Conn
	Subject string
	Queue   string
	Invoker Invoker

	ctx context.Context
	sub *nats.Subscription
}

func NewWorker(conn *nats.Conn, subject, queue string, invoker Invoker) *Worker {
	return &Worker{Conn: conn, Subject: subject, Queue: queue, Invoker: invoker}
}

// Start subscribes the worker. Runs use ctx, so cancelling it aborts
// in-flight runs.
func (w *Worker) Start(ctx context.Context) error {
	w.ctx = ctx

	sub, err := w.Conn.QueueSubscribe(w.Subject, w.Queue, w.handleRun)
	if err != nil {
		return err
	}
	w.sub = sub

	slog.Info("Worker subscribed", "subject", w.Subject, "queue", w.Queue)
	return nil
}

// Stop drains the subscription, letting an in-flight run finish
func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

func (w *Worker) handleRun(msg *nats.Msg) {
	var req RunRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error("Error unmarshaling run request", "err", err)
		if err := msg.Respond(utils.GenerateErrorPayload(awserrors.ErrorInvalidParameterValue)); err != nil {
			slog.Error("Failed to respond to NATS request", "err", err)
		}
		return
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	inc := ""
	if req.Inc != nil {
		inc = strconv.Itoa(*req.Inc)
	}

	slog.Debug("Received run request", "subject", msg.Subject, "requestId", req.RequestID)

	resp := w.Invoker.Invoke(w.ctx, req.RequestID, req.InstanceID, req.VolumeID, inc)

	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal response", "err", err)
		data = utils.GenerateErrorPayload(awserrors.ErrorInternalError)
	}
	if err := msg.Respond(data); err != nil {
		slog.Error("Failed to respond to NATS request", "err", err)
	}
}
