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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/mulgadc/ebsgrow/ebsgrow/gateway"
	"github.com/mulgadc/ebsgrow/ebsgrow/workflow"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Snapshot and grow the selected volumes once",
	Run:   runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("instance-id", "", "Only volumes attached to this instance")
	runCmd.Flags().String("volume-id", "", "Only this volume")
	runCmd.Flags().String("inc", "", "Growth percentage (default from config)")
	runCmd.Flags().Bool("json", false, "Print the report as JSON")
}

func runOnce(cmd *cobra.Command, args []string) {
	a := loadApp(false)
	defer a.Close()

	instanceID, _ := cmd.Flags().GetString("instance-id")
	volumeID, _ := cmd.Flags().GetString("volume-id")
	inc, _ := cmd.Flags().GetString("inc")
	asJSON, _ := cmd.Flags().GetBool("json")

	params, err := workflow.ParseParams(instanceID, volumeID, inc, a.Config.Resize.DefaultIncrement)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	params.RequestID = uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.Workflow.Run(ctx, params)
	resp := gateway.BuildResponse(err)

	if asJSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	} else {
		renderReport(report)
	}

	if err != nil {
		pterm.Error.Printfln("%d %s", resp.StatusCode, resp.Body)
		os.Exit(1)
	}
	pterm.Success.Println(resp.Body)
}

func renderReport(report *workflow.Report) {
	tableData := pterm.TableData{
		{"VOLUME", "INSTANCE", "SNAPSHOT", "NAME", "SIZE", "DEVICE", "FS", "PARTITION", "ERROR"},
	}

	for _, res := range report.Volumes {
		size := "-"
		if res.Resized {
			size = fmt.Sprintf("%d → %d GiB", res.OldSize, res.NewSize)
		}
		tableData = append(tableData, []string{
			res.VolumeID,
			orDash(res.InstanceID),
			orDash(res.SnapshotID),
			orDash(res.SnapshotName),
			size,
			orDash(res.RootDevice),
			strconv.FormatBool(res.FilesystemGrown),
			strconv.FormatBool(res.PartitionGrown),
			orDash(res.Error),
		})
	}

	pterm.DefaultSection.Printfln("Request %s", report.RequestID)
	if len(report.Volumes) == 0 {
		pterm.Info.Println("No in-use volumes matched")
		return
	}
	pterm.DefaultTable.WithHasHeader().WithLeftAlignment().WithData(tableData).Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
