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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mulgadc/ebsgrow/ebsgrow/admin"
	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	"github.com/mulgadc/ebsgrow/ebsgrow/policy"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands",
}

var adminInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default ebsgrow.toml and optionally an AWS CLI profile",
	Run:   runAdminInit,
}

var adminPolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the IAM policy the workflow runs with, or verify a deployed one",
	Run:   runAdminPolicy,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminInitCmd)
	adminCmd.AddCommand(adminPolicyCmd)

	adminInitCmd.Flags().String("path", "ebsgrow.toml", "Where to write the config file")
	adminInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	adminInitCmd.Flags().String("profile", "", "Also write an AWS CLI profile with this name")
	adminInitCmd.Flags().Bool("guest", false, "Enable guest filesystem extension")
	adminInitCmd.Flags().String("schedule", "", "Cron schedule for the worker")

	adminPolicyCmd.Flags().Bool("guest", false, "Include the SSM run command grant")
	adminPolicyCmd.Flags().String("verify", "", "Verify the policy document at this path instead of printing")
}

func runAdminInit(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")
	profile, _ := cmd.Flags().GetString("profile")
	guest, _ := cmd.Flags().GetBool("guest")
	schedule, _ := cmd.Flags().GetString("schedule")

	if admin.FileExists(path) && !force {
		fmt.Fprintf(os.Stderr, "Error: %s exists, use --force to overwrite\n", path)
		os.Exit(1)
	}

	settings := admin.ConfigSettings{
		Backend:      config.BackendAWS,
		Region:       "us-east-1",
		NatsHost:     "nats://127.0.0.1:4222",
		NatsToken:    admin.GenerateNATSToken(),
		GuestEnabled: guest,
		Schedule:     schedule,
		Profile:      profile,
	}
	if appConfig != nil {
		if appConfig.Region != "" {
			settings.Region = appConfig.Region
		}
		settings.Backend = appConfig.Backend
		settings.Endpoint = appConfig.Endpoint
		settings.AccessKey = appConfig.AccessKey
		settings.SecretKey = appConfig.SecretKey
		settings.NatsHost = appConfig.NATS.Host
	}

	if err := admin.GenerateConfigFile(path, admin.DefaultConfigTemplate, settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := admin.CheckConfigFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: generated config is invalid: %v\n", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(path)
	fmt.Printf("✅ Created: %s\n", abs)

	if profile != "" {
		if settings.AccessKey == "" {
			fmt.Fprintln(os.Stderr, "Error: --profile needs --access-key and --secret-key")
			os.Exit(1)
		}
		if err := admin.SetupAWSProfile(profile, settings.AccessKey, settings.SecretKey, settings.Region, settings.Endpoint); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   Profile: %s\n", profile)
		fmt.Printf("   Use: export AWS_PROFILE=%s\n", profile)
	}
}

func runAdminPolicy(cmd *cobra.Command, args []string) {
	guest, _ := cmd.Flags().GetBool("guest")
	verify, _ := cmd.Flags().GetString("verify")

	if verify != "" {
		if err := policy.VerifyFile(verify, guest); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s allows every action the workflow calls\n", verify)
		return
	}

	out, err := json.MarshalIndent(policy.DeclaredDocument(guest), "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
