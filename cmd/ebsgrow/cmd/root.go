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
	"fmt"
	"os"

	"github.com/mulgadc/ebsgrow/ebsgrow/app"
	"github.com/mulgadc/ebsgrow/ebsgrow/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	appConfig *config.Config
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ebsgrow",
	Short: "ebsgrow - snapshot and grow EBS volumes",
	Long: `ebsgrow snapshots in-use EBS volumes, tags the snapshots, grows each volume by a
percentage and optionally extends the guest filesystem over SSM Run Command.
It runs as a Lambda function, an HTTP service, a NATS worker or a one-shot CLI,
configured via config file, environment variables, or command line flags.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	viper.BindEnv("config", "EBSGROW_CONFIG_PATH")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().String("backend", "", "Provider backend, aws or nats (overrides config file and env)")
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))

	rootCmd.PersistentFlags().String("region", "", "AWS region (overrides config file and env)")
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))

	rootCmd.PersistentFlags().String("endpoint", "", "Custom EC2/SSM endpoint (overrides config file and env)")
	viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))

	// Authentication (access_key, secret)
	rootCmd.PersistentFlags().String("access-key", "", "AWS access key (overrides config file and env)")
	viper.BindPFlag("accesskey", rootCmd.PersistentFlags().Lookup("access-key"))

	rootCmd.PersistentFlags().String("secret-key", "", "AWS secret key (overrides config file and env)")
	viper.BindPFlag("secretkey", rootCmd.PersistentFlags().Lookup("secret-key"))

	// NATS specific flags
	rootCmd.PersistentFlags().String("nats-host", "", "NATS server host (overrides config file and env)")
	viper.BindPFlag("nats.host", rootCmd.PersistentFlags().Lookup("nats-host"))

	rootCmd.PersistentFlags().String("nats-token", "", "NATS authentication token (overrides config file and env)")
	viper.BindPFlag("nats.acl.token", rootCmd.PersistentFlags().Lookup("nats-token"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}

	appConfig, configErr = config.LoadConfig(cfgFile)
}

// loadApp builds the workflow from the loaded configuration, exiting on error
func loadApp(connectNATS bool) *app.App {
	if configErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", configErr)
		os.Exit(1)
	}

	a, err := app.New(appConfig, connectNATS)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}
