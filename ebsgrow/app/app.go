// Package app wires configuration to a ready workflow and its transports.
package app

import (
	"fmt"
	"log/slog"

	"github.com/mulgadc/ebsgrow/ebsgrow/blockstore"
	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	"github.com/mulgadc/ebsgrow/ebsgrow/events"
	"github.com/mulgadc/ebsgrow/ebsgrow/gateway"
	"github.com/mulgadc/ebsgrow/ebsgrow/policy"
	"github.com/mulgadc/ebsgrow/ebsgrow/remotecmd"
	"github.com/mulgadc/ebsgrow/ebsgrow/utils"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	Config   *config.Config
	Workflow *workflow.Workflow
	Gateway  *gateway.GatewayConfig
	Registry *prometheus.Registry
	NATSConn *nats.Conn // nil unless the backend or a transport needs NATS
}

// New builds the provider clients for cfg.Backend and wires the workflow.
// connectNATS forces a NATS connection for transports that need one even
// with the aws backend.
func New(cfg *config.Config, connectNATS bool) (*App, error) {
	if cfg.PolicyFile != "" {
		if err := policy.VerifyFile(cfg.PolicyFile, cfg.Guest.Enabled); err != nil {
			return nil, err
		}
		slog.Info("Policy verified", "file", cfg.PolicyFile)
	}

	var conn *nats.Conn
	if cfg.Backend == config.BackendNATS || connectNATS {
		var err error
		conn, err = utils.ConnectNATS(cfg.NATS.Host, cfg.NATS.ACL.Token)
		if err != nil {
			return nil, err
		}
		slog.Info("Connected to NATS server", "host", cfg.NATS.Host)
	}

	waiter := blockstore.WaiterOptions{
		Delay:       cfg.Snapshot.WaitDelay,
		MaxAttempts: cfg.Snapshot.WaitMaxAttempts,
	}

	var volumes blockstore.VolumeService
	var commands remotecmd.CommandService

	switch cfg.Backend {
	case config.BackendAWS:
		sess, err := utils.NewSession(utils.SessionOptions{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			Profile:   cfg.Profile,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Insecure:  cfg.Insecure,
		})
		if err != nil {
			if conn != nil {
				conn.Close()
			}
			return nil, fmt.Errorf("aws session: %w", err)
		}
		volumes = blockstore.NewEC2VolumeService(sess, waiter)
		if cfg.Guest.Enabled {
			commands = remotecmd.NewSSMCommandService(sess)
		}

	case config.BackendNATS:
		volumes = blockstore.NewNATSVolumeService(conn, waiter)

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	return NewWithServices(cfg, volumes, commands, conn), nil
}

// NewWithServices wires the workflow around already built providers.
// commands may be nil to disable guest extension.
func NewWithServices(cfg *config.Config, volumes blockstore.VolumeService, commands remotecmd.CommandService, conn *nats.Conn) *App {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var dispatcher *remotecmd.Dispatcher
	if commands != nil && cfg.Guest.Enabled {
		dispatcher = remotecmd.NewDispatcher(commands, cfg.Guest.Document, cfg.Guest.PollInterval, cfg.Guest.Timeout)
	}

	wf := workflow.New(volumes, dispatcher, workflow.Options{
		SnapshotDescription:  cfg.Snapshot.Description,
		ModificationInterval: cfg.Resize.PollInterval,
		ModificationTimeout:  cfg.Resize.Timeout,
		RootPath:             cfg.Guest.RootPath,
		ContinueOnError:      cfg.ContinueOnError,
	})
	wf.Metrics = workflow.NewMetrics(registry)

	if conn != nil && cfg.NATS.Events != "" {
		wf.Notifier = events.NewPublisher(conn, cfg.NATS.Events)
	}

	return &App{
		Config:   cfg,
		Workflow: wf,
		Registry: registry,
		NATSConn: conn,
		Gateway: &gateway.GatewayConfig{
			Debug:            cfg.Gateway.Debug,
			DisableLogging:   cfg.Gateway.DisableLogging,
			Runner:           wf,
			DefaultIncrement: cfg.Resize.DefaultIncrement,
			Gatherer:         registry,
		},
	}
}

// Close flushes pending events and closes the NATS connection
func (a *App) Close() {
	if a.NATSConn == nil {
		return
	}
	if err := a.NATSConn.Drain(); err != nil {
		slog.Warn("NATS drain failed", "err", err)
		a.NATSConn.Close()
	}
}
