package events

import (
	"context"
	"time"

	"github.com/mulgadc/ebsgrow/ebsgrow/gateway"
	"github.com/mulgadc/ebsgrow/ebsgrow/utils"
	"github.com/nats-io/nats.go"
)

// RequestRun asks a worker on subject to run the workflow and waits for its
// response. A run can take minutes, so timeout should cover a whole run.
func RequestRun(ctx context.Context, conn *nats.Conn, subject string, req RunRequest, timeout time.Duration) (*gateway.Response, error) {
	return utils.NATSRequest[gateway.Response](ctx, conn, subject, req, timeout)
}
