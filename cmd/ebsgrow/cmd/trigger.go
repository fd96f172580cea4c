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
	"os"
	"strconv"

	"github.com/mulgadc/ebsgrow/ebsgrow/events"
	"github.com/mulgadc/ebsgrow/ebsgrow/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask a worker to run the workflow over NATS",
	Run:   runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)

	triggerCmd.Flags().String("instance-id", "", "Only volumes attached to this instance")
	triggerCmd.Flags().String("volume-id", "", "Only this volume")
	triggerCmd.Flags().String("inc", "", "Growth percentage (default from the worker config)")
}

func runTrigger(cmd *cobra.Command, args []string) {
	if configErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", configErr)
		os.Exit(1)
	}

	req := events.RunRequest{}
	req.InstanceID, _ = cmd.Flags().GetString("instance-id")
	req.VolumeID, _ = cmd.Flags().GetString("volume-id")

	if raw, _ := cmd.Flags().GetString("inc"); raw != "" {
		inc, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: inc must be an integer, got %q\n", raw)
			os.Exit(1)
		}
		req.Inc = &inc
	}

	nc, err := utils.ConnectNATS(appConfig.NATS.Host, appConfig.NATS.ACL.Token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer nc.Close()

	spinner, _ := pterm.DefaultSpinner.Start("Waiting for worker on " + appConfig.NATS.Sub.Subject)
	resp, err := events.RequestRun(context.Background(), nc, appConfig.NATS.Sub.Subject, req, appConfig.NATS.Timeout)
	if err != nil {
		spinner.Fail(err.Error())
		os.Exit(1)
	}

	if resp.StatusCode != 200 {
		spinner.Fail(fmt.Sprintf("%d %s", resp.StatusCode, resp.Body))
		os.Exit(1)
	}
	spinner.Success(resp.Body)
}
