/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mulgadc/ebsgrow/ebsgrow/events"
	"github.com/mulgadc/ebsgrow/ebsgrow/scheduler"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume run requests from NATS and run the configured schedule",
	Run:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().String("schedule", "", "Cron schedule for periodic runs, e.g. \"0 0 2 * * *\" (overrides config)")
	workerCmd.Flags().Bool("no-subscribe", false, "Only run the schedule, do not consume run requests")
}

func runWorker(cmd *cobra.Command, args []string) {
	a := loadApp(true)
	defer a.Close()

	if undo, err := maxprocs.Set(); err == nil {
		defer undo()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.Config
	noSubscribe, _ := cmd.Flags().GetBool("no-subscribe")

	if !noSubscribe {
		w := events.NewWorker(a.NATSConn, cfg.NATS.Sub.Subject, cfg.NATS.Sub.Queue, a.Gateway)
		if err := w.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: subscribe %s: %v\n", cfg.NATS.Sub.Subject, err)
			os.Exit(1)
		}
		defer w.Stop()
	}

	spec, _ := cmd.Flags().GetString("schedule")
	if spec == "" {
		spec = cfg.Schedule.Cron
	}

	if spec != "" {
		params := workflow.Params{
			InstanceID: cfg.Schedule.InstanceID,
			VolumeID:   cfg.Schedule.VolumeID,
			Increment:  cfg.Schedule.Increment,
		}
		s := scheduler.New(spec, params, a.Workflow)
		if err := s.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer s.Stop()
	} else if noSubscribe {
		fmt.Fprintln(os.Stderr, "Error: --no-subscribe needs a schedule")
		os.Exit(1)
	}

	slog.Info("Worker running", "subject", cfg.NATS.Sub.Subject, "schedule", spec)
	<-ctx.Done()
	slog.Info("Worker shutting down")
}
