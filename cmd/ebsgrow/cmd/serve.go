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
	"log"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /backup, /healthz and /metrics over HTTP",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a := loadApp(false)
	defer a.Close()

	// Adjust MAXPROCS if running under linux/cgroups quotas.
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Debug("maxprocs", "msg", format, "args", args)
	}))
	if err != nil {
		slog.Warn("Failed to set GOMAXPROCS", "err", err)
	} else {
		defer undo()
	}

	app := a.Gateway.SetupRoutes()
	gw := a.Config.Gateway

	slog.Info("Starting gateway", "host", gw.Host, "backend", a.Config.Backend, "guest", a.Config.Guest.Enabled)

	if gw.TLSCert != "" && gw.TLSKey != "" {
		log.Fatal(app.ListenTLS(gw.Host, gw.TLSCert, gw.TLSKey))
	}
	log.Fatal(app.Listen(gw.Host))
}
